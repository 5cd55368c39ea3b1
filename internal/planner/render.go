package planner

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	NoDaysMessage      = "No day-wise data found in the plan JSON."
	NoWorkoutMessage   = "No workout specified for this day."
	NoDietMessage      = "No diet specified for this day."
	InvalidJSONMessage = "The AI response was not valid JSON. Showing raw output below."
)

// RenderMarkdown lays a parsed plan out the way the planner UI shows it.
func RenderMarkdown(plan Plan) string {
	var b strings.Builder

	if plan.Summary != "" {
		fmt.Fprintf(&b, "**Summary:** %s\n\n", plan.Summary)
	}
	if plan.Disclaimer != "" {
		fmt.Fprintf(&b, "**Disclaimer:** %s\n\n", plan.Disclaimer)
	}
	if len(plan.Days) == 0 {
		b.WriteString(NoDaysMessage + "\n")
		return b.String()
	}

	for _, day := range plan.Days {
		fmt.Fprintf(&b, "### %s\n\n#### Workout\n", day.Day)
		if len(day.Workout) == 0 {
			b.WriteString(NoWorkoutMessage + "\n")
		}
		for _, item := range day.Workout {
			b.WriteString(workoutLine(item) + "\n")
		}

		b.WriteString("\n#### Diet\n")
		if len(day.Diet) == 0 {
			b.WriteString(NoDietMessage + "\n")
		}
		for _, meal := range day.Diet {
			line := fmt.Sprintf("- **%s**: %s", meal.Meal, meal.Description)
			if meal.ApproxCalories != nil {
				line += fmt.Sprintf(" (~%d kcal)", int(*meal.ApproxCalories))
			}
			b.WriteString(line + "\n")
		}
		if total := day.TotalCalories(); total != 0 {
			fmt.Fprintf(&b, "\n**Approx. daily calories:** %d kcal\n", int(total))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderFallback is shown instead of a plan when the output did not parse.
func RenderFallback(raw string) string {
	return InvalidJSONMessage + "\n\n```json\n" + raw + "\n```\n"
}

func workoutLine(item WorkoutItem) string {
	parts := make([]string, 0, 2)
	if item.Sets != nil && item.Reps != "" {
		parts = append(parts, fmt.Sprintf("%d sets x %s reps", *item.Sets, item.Reps))
	}
	if item.DurationMinutes != nil && *item.DurationMinutes != 0 {
		parts = append(parts, "~"+strconv.FormatFloat(*item.DurationMinutes, 'f', -1, 64)+" min")
	}

	line := "- **" + item.Name + "**"
	if len(parts) > 0 {
		line += ": " + strings.Join(parts, ", ")
	}
	if item.Notes != "" {
		line += " (" + item.Notes + ")"
	}
	return line
}
