package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fitplan/internal/planner"
)

type profileRequest struct {
	Name          string `json:"name" binding:"max=120"`
	Age           int    `json:"age" binding:"required,min=16,max=80"`
	Gender        string `json:"gender" binding:"required"`
	HeightCm      int    `json:"height_cm" binding:"required,min=120,max=220"`
	WeightKg      int    `json:"weight_kg" binding:"required,min=35,max=200"`
	Goal          string `json:"goal" binding:"required"`
	ActivityLevel string `json:"activity_level" binding:"required"`
	Cuisine       string `json:"cuisine" binding:"required"`
	Budget        string `json:"budget" binding:"required"`
	Equipment     string `json:"equipment" binding:"required"`
	TimePerDay    int    `json:"time_per_day" binding:"required,min=15,max=120"`
	DaysPerWeek   int    `json:"days_per_week" binding:"required,min=2,max=7"`
	Allergies     string `json:"allergies" binding:"max=500"`
	Notes         string `json:"notes" binding:"max=2000"`
}

func (r profileRequest) toProfile() planner.Profile {
	return planner.Profile{
		Name:          r.Name,
		Age:           r.Age,
		Gender:        r.Gender,
		HeightCm:      r.HeightCm,
		WeightKg:      r.WeightKg,
		Goal:          r.Goal,
		ActivityLevel: r.ActivityLevel,
		Cuisine:       r.Cuisine,
		Budget:        r.Budget,
		Equipment:     r.Equipment,
		TimePerDay:    r.TimePerDay,
		DaysPerWeek:   r.DaysPerWeek,
		Allergies:     r.Allergies,
		Notes:         r.Notes,
	}
}

type metricsPreviewRequest struct {
	Age           int    `json:"age" binding:"required,min=16,max=80"`
	Gender        string `json:"gender" binding:"required"`
	HeightCm      int    `json:"height_cm" binding:"required,min=120,max=220"`
	WeightKg      int    `json:"weight_kg" binding:"required,min=35,max=200"`
	Goal          string `json:"goal" binding:"required"`
	ActivityLevel string `json:"activity_level" binding:"required"`
}

type rangeOption struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

// Ranges mirror the binding tags on profileRequest.
var profileRanges = map[string]rangeOption{
	"age":           {Min: 16, Max: 80, Default: 20},
	"height_cm":     {Min: 120, Max: 220, Default: 170},
	"weight_kg":     {Min: 35, Max: 200, Default: 65},
	"time_per_day":  {Min: 15, Max: 120, Default: 45},
	"days_per_week": {Min: 2, Max: 7, Default: 4},
}

func (a *App) getOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"genders":         planner.Genders,
		"goals":           planner.Goals,
		"activity_levels": planner.ActivityLevels,
		"cuisines":        planner.Cuisines,
		"budgets":         planner.Budgets,
		"equipment":       planner.EquipmentOptions,
		"ranges":          profileRanges,
	})
}

func (a *App) previewMetrics(c *gin.Context) {
	var payload metricsPreviewRequest
	if !mustJSON(c, &payload) {
		return
	}

	// Enum checks reuse the full normalizer; the remaining enums get a
	// neutral placeholder that always validates.
	profile, err := planner.NormalizeProfile(planner.Profile{
		Age:           payload.Age,
		Gender:        payload.Gender,
		HeightCm:      payload.HeightCm,
		WeightKg:      payload.WeightKg,
		Goal:          payload.Goal,
		ActivityLevel: payload.ActivityLevel,
		Cuisine:       planner.Cuisines[0].Value,
		Budget:        planner.Budgets[0].Value,
		Equipment:     planner.EquipmentOptions[0].Value,
	})
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, planner.ComputeMetrics(profile))
}
