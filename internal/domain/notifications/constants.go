package notifications

const (
	TypeGoalCreated           = "goal_created"
	TypeGoalCompleted         = "goal_completed"
	TypeQuestionnaireAssigned = "questionnaire_assigned"
	TypeEvaluationCompleted   = "evaluation_completed"
	TypeMessageDelivered      = "message_delivered"
)
