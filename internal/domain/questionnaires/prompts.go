package questionnaires

import (
	"fmt"
	"strings"
)

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// messagePrompt asks for the note sent to the employee. The tone follows
// the rating.
func messagePrompt(employeeName string, in EvaluationInput) string {
	var b strings.Builder
	if in.OverallRating.Positive() {
		fmt.Fprintf(&b, "Create a positive, encouraging Slack message for %s based on their monthly performance review.\n", employeeName)
		fmt.Fprintf(&b, "Rating: %s, Goals on track: %s.\n", in.OverallRating, yesNo(in.GoalsOnTrack))
		if in.ManagerComments != "" {
			fmt.Fprintf(&b, "Manager feedback: %s\n", in.ManagerComments)
		}
		b.WriteString("Keep it professional, specific, and motivating. Max 200 words.")
		return b.String()
	}

	fmt.Fprintf(&b, "Create a constructive, supportive Slack message for %s based on their monthly performance review.\n", employeeName)
	fmt.Fprintf(&b, "Rating: %s, Goals on track: %s.\n", in.OverallRating, yesNo(in.GoalsOnTrack))
	fmt.Fprintf(&b, "Areas for improvement: %s\n", orDefault(in.AreasForImprovement, "General performance"))
	if in.ManagerComments != "" {
		fmt.Fprintf(&b, "Manager feedback: %s\n", in.ManagerComments)
	}
	b.WriteString("Focus on growth opportunities and support. Keep it encouraging yet actionable. Max 200 words.")
	return b.String()
}

func suggestionPrompt(employeeName string, in EvaluationInput) string {
	return fmt.Sprintf(`Based on this employee performance data:
Employee: %s
Overall Rating: %s
Goals on Track: %s
Areas for Improvement: %s
Manager Comments: %s
Provide 2-3 specific, actionable suggestions for the manager to help improve this employee's performance next month. Keep suggestions brief and practical.`,
		employeeName, in.OverallRating, yesNo(in.GoalsOnTrack),
		orDefault(in.AreasForImprovement, "None specified"),
		orDefault(in.ManagerComments, "None provided"))
}
