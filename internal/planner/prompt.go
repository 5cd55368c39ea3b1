package planner

import "fmt"

const (
	nameFallback      = "Not provided"
	allergiesFallback = "None specified"
	notesFallback     = "None"
)

// PlanSchemaDescription is embedded in every prompt so the model knows the
// exact shape ParsePlan expects.
const PlanSchemaDescription = `
You MUST respond with ONLY valid JSON, no extra text before or after.
The JSON must have this structure:

{
  "summary": "short overview string",
  "disclaimer": "short disclaimer string",
  "days": [
    {
      "day": "Day 1",
      "workout": [
        {
          "name": "Exercise name",
          "sets": 3,
          "reps": "10-12",
          "duration_minutes": 15,
          "notes": "Short notes"
        }
      ],
      "diet": [
        {
          "meal": "Breakfast",
          "description": "What to eat",
          "approx_calories": 350
        }
      ]
    }
  ]
}
`

const planPromptTemplate = `
You are helping a college student in India on a tight budget create a practical weekly workout and diet plan.

Student profile:
- Name (optional): %s
- Age: %d
- Gender: %s
- Height: %d cm
- Weight: %d kg
- BMI: %.1f
- Goal: %s
- Activity level: %s
- Preferred cuisine: %s
- Daily food budget: %s
- Available equipment: %s
- Time available per day for workout: %d minutes
- Days per week available for workout: %d
- Allergies or foods to avoid: %s
- Extra notes: %s

Calorie guideline:
- Target daily calories: around %d kcal, distributed across meals.

Constraints and requirements:
- Use common, affordable Indian student foods: roti, rice, dal, sabzi, curd, paneer, eggs, simple chicken, fruits, oats.
- Respect veg / non-veg preference and allergies strictly.
- Make the plan realistic for a hostel or student lifestyle (limited cooking, mess food).
- For workouts, design routines that match the equipment and time constraints.
- Focus on full-body training across the week, progressive but safe.
- Avoid recommending risky exercises if equipment is limited.

Output format and schema:
%s

Rules:
- Respond with ONLY valid JSON matching the schema.
- Do not include markdown, explanations, or any text outside the JSON.
`

// BuildPrompt renders the user message for one plan request. It performs no
// I/O; empty optional fields are replaced by fixed fallback phrases.
func BuildPrompt(p Profile, m Metrics) string {
	return fmt.Sprintf(
		planPromptTemplate,
		orFallback(p.Name, nameFallback),
		p.Age,
		labelFor(Genders, p.Gender),
		p.HeightCm,
		p.WeightKg,
		m.BMI,
		labelFor(Goals, p.Goal),
		labelFor(ActivityLevels, p.ActivityLevel),
		labelFor(Cuisines, p.Cuisine),
		labelFor(Budgets, p.Budget),
		labelFor(EquipmentOptions, p.Equipment),
		p.TimePerDay,
		p.DaysPerWeek,
		orFallback(p.Allergies, allergiesFallback),
		orFallback(p.Notes, notesFallback),
		m.TargetCalories,
		PlanSchemaDescription,
	)
}

func orFallback(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
