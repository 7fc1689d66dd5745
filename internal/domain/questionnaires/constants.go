package questionnaires

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
)

type Rating string

const (
	RatingExcellent        Rating = "excellent"
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needs_improvement"
	RatingPoor             Rating = "poor"
)

var Ratings = []Rating{RatingExcellent, RatingGood, RatingNeedsImprovement, RatingPoor}

func (r Rating) Valid() bool {
	switch r {
	case RatingExcellent, RatingGood, RatingNeedsImprovement, RatingPoor:
		return true
	}
	return false
}

// Positive reports whether the rating gets the encouraging tone.
func (r Rating) Positive() bool {
	return r == RatingExcellent || r == RatingGood
}

type MessageType string

const (
	MessagePositive    MessageType = "positive"
	MessageImprovement MessageType = "improvement"
)

// MessageTypeFor depends on the rating alone.
func MessageTypeFor(r Rating) MessageType {
	if r.Positive() {
		return MessagePositive
	}
	return MessageImprovement
}

const FallbackMessage = "Thank you for your continued dedication and hard work this month!"

const (
	serviceGenAI = "genai"
	serviceSlack = "slack"
)
