package planner

import (
	"fmt"
	"strings"
)

// Option is one selectable value of a profile field. Value is the canonical
// wire form, Label is what the form shows and what the prompt prints.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var (
	Genders = []Option{
		{Value: "male", Label: "Male"},
		{Value: "female", Label: "Female"},
	}
	Goals = []Option{
		{Value: "weight-loss", Label: "Weight loss"},
		{Value: "maintenance", Label: "Maintenance"},
		{Value: "muscle-gain", Label: "Muscle gain"},
	}
	ActivityLevels = []Option{
		{Value: "sedentary", Label: "Sedentary"},
		{Value: "lightly-active", Label: "Lightly active"},
		{Value: "moderately-active", Label: "Moderately active"},
		{Value: "very-active", Label: "Very active"},
	}
	Cuisines = []Option{
		{Value: "indian-veg", Label: "Indian veg"},
		{Value: "indian-non-veg", Label: "Indian non-veg"},
		{Value: "mixed", Label: "Mixed / no preference"},
	}
	Budgets = []Option{
		{Value: "low", Label: "Low"},
		{Value: "medium", Label: "Medium"},
		{Value: "high", Label: "High"},
	}
	EquipmentOptions = []Option{
		{Value: "none", Label: "No equipment (hostel/room)"},
		{Value: "basic", Label: "Basic (dumbbells/band)"},
		{Value: "full-gym", Label: "Full gym access"},
	}
)

// Profile is one form submission. Enum fields hold canonical option values
// once the profile has gone through NormalizeProfile.
type Profile struct {
	Name          string `json:"name"`
	Age           int    `json:"age"`
	Gender        string `json:"gender"`
	HeightCm      int    `json:"height_cm"`
	WeightKg      int    `json:"weight_kg"`
	Goal          string `json:"goal"`
	ActivityLevel string `json:"activity_level"`
	Cuisine       string `json:"cuisine"`
	Budget        string `json:"budget"`
	Equipment     string `json:"equipment"`
	TimePerDay    int    `json:"time_per_day"`
	DaysPerWeek   int    `json:"days_per_week"`
	Allergies     string `json:"allergies"`
	Notes         string `json:"notes"`
}

// NormalizeProfile trims the free-text fields and maps every enum field to
// its canonical value. Range bounds are the form layer's job.
func NormalizeProfile(p Profile) (Profile, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Allergies = strings.TrimSpace(p.Allergies)
	p.Notes = strings.TrimSpace(p.Notes)

	fields := []struct {
		name    string
		value   *string
		options []Option
	}{
		{name: "gender", value: &p.Gender, options: Genders},
		{name: "goal", value: &p.Goal, options: Goals},
		{name: "activity_level", value: &p.ActivityLevel, options: ActivityLevels},
		{name: "cuisine", value: &p.Cuisine, options: Cuisines},
		{name: "budget", value: &p.Budget, options: Budgets},
		{name: "equipment", value: &p.Equipment, options: EquipmentOptions},
	}
	for _, field := range fields {
		option, ok := lookupOption(field.options, *field.value)
		if !ok {
			return Profile{}, fmt.Errorf("%s must be one of: %s", field.name, optionValues(field.options))
		}
		*field.value = option.Value
	}
	return p, nil
}

func lookupOption(options []Option, raw string) (Option, bool) {
	key := canonicalKey(raw)
	if key == "" {
		return Option{}, false
	}
	for _, option := range options {
		if key == canonicalKey(option.Value) || key == canonicalKey(option.Label) {
			return option, true
		}
	}
	return Option{}, false
}

// labelFor falls back to the raw value so a prompt never loses information.
func labelFor(options []Option, raw string) string {
	if option, ok := lookupOption(options, raw); ok {
		return option.Label
	}
	return raw
}

func canonicalKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "_", "-")
	return strings.Join(strings.Fields(key), "-")
}

func optionValues(options []Option) string {
	values := make([]string, 0, len(options))
	for _, option := range options {
		values = append(values, option.Value)
	}
	return strings.Join(values, ", ")
}
