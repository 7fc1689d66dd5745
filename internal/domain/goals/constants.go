package goals

type Status string

const (
	StatusNotStarted     Status = "not-started"
	StatusInProgress     Status = "in-progress"
	StatusCompleted      Status = "completed"
	StatusBehindSchedule Status = "behind-schedule"
)

var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusCompleted, StatusBehindSchedule}

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusBehindSchedule:
		return true
	}
	return false
}

const (
	MinProgress = 0
	MaxProgress = 100
)

// CompanyStrategies is the fixed set of statements a goal must align with.
var CompanyStrategies = []string{
	"Position the company as a market leader in AI-driven solutions",
	"Integrate SAM as a core technology layer across In-App, CTV, and Web markets",
	"Drive measurable business impact through data-led customer value",
}

func IsCompanyStrategy(value string) bool {
	for _, strategy := range CompanyStrategies {
		if value == strategy {
			return true
		}
	}
	return false
}
