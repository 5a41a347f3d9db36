package plans

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vinoplan-backend/internal/platform/jsoncol"
)

const (
	SourceInteractive = "interactive"
	SourceWarmup      = "warmup"
)

// TastingPlan is a persisted, schema-valid AI plan. Immutable once written.
type TastingPlan struct {
	ID                    uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                *uuid.UUID   `gorm:"type:uuid;column:user_id;index" json:"userId,omitempty"`
	Tier                  string       `gorm:"column:tier;not null;index" json:"tier"`
	Source                string       `gorm:"column:source;not null;index" json:"source"`
	Fingerprint           string       `gorm:"column:fingerprint;not null;index" json:"fingerprint"`
	Occasion              string       `gorm:"column:occasion;not null" json:"occasion"`
	FoodPairing           string       `gorm:"column:food_pairing" json:"foodPairing"`
	Currency              string       `gorm:"column:currency;not null" json:"currency"`
	Title                 string       `gorm:"column:title;not null" json:"title"`
	Description           string       `gorm:"column:description;type:text" json:"description"`
	TastingTips           jsoncol.JSON `gorm:"column:tasting_tips" json:"tastingTips"`
	TotalEstimatedCostMin float64      `gorm:"column:total_estimated_cost_min;not null" json:"totalEstimatedCostMin"`
	TotalEstimatedCostMax float64      `gorm:"column:total_estimated_cost_max;not null" json:"totalEstimatedCostMax"`
	Wines                 []PlanWine   `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE" json:"wines"`
	CreatedAt             time.Time    `gorm:"not null;index" json:"createdAt"`
}

func (TastingPlan) TableName() string { return "tasting_plan" }

type PlanWine struct {
	ID                uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	PlanID            uuid.UUID    `gorm:"type:uuid;column:plan_id;not null;index" json:"planId"`
	TastingOrder      int          `gorm:"column:tasting_order;not null" json:"tastingOrder"`
	Varietal          string       `gorm:"column:varietal;not null" json:"varietal"`
	Region            string       `gorm:"column:region;not null" json:"region"`
	WineType          string       `gorm:"column:wine_type;not null" json:"wineType"`
	Description       string       `gorm:"column:description;type:text" json:"description"`
	PairingRationale  string       `gorm:"column:pairing_rationale;type:text" json:"pairingRationale"`
	FlavorNotes       jsoncol.JSON `gorm:"column:flavor_notes" json:"flavorNotes"`
	Acidity           float64      `gorm:"column:acidity;not null" json:"acidity"`
	Tannin            float64      `gorm:"column:tannin;not null" json:"tannin"`
	Sweetness         float64      `gorm:"column:sweetness;not null" json:"sweetness"`
	Alcohol           float64      `gorm:"column:alcohol;not null" json:"alcohol"`
	Body              float64      `gorm:"column:body;not null" json:"body"`
	EstimatedPriceMin float64      `gorm:"column:estimated_price_min;not null" json:"estimatedPriceMin"`
	EstimatedPriceMax float64      `gorm:"column:estimated_price_max;not null" json:"estimatedPriceMax"`
	CreatedAt         time.Time    `gorm:"not null" json:"createdAt"`
}

func (PlanWine) TableName() string { return "plan_wine" }
