package model

import (
	"math"
	"time"
)

// Item is a donated "second chance" item.
//
// ID is the decimal string of an integer sequence assigned by the catalog
// store; parsed as integers, ids grow strictly in creation order. DateAdded is
// a Unix timestamp in seconds, set once at creation.
//
// JSON names are snake_case for the item attributes and camelCase for
// updatedAt, matching what the web client sends and reads.
type Item struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	Category    string     `json:"category"`
	Condition   string     `json:"condition"`
	PostedBy    string     `json:"posted_by,omitempty"`
	Zipcode     string     `json:"zipcode,omitempty"`
	DateAdded   int64      `json:"date_added"`
	AgeDays     float64    `json:"age_days"`
	AgeYears    *float64   `json:"age_years,omitempty"` // recomputed on update
	Description string     `json:"description"`
	Image       string     `json:"image,omitempty"` // stored name of the uploaded attachment
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// AgeInYears converts an age in days to years rounded to one decimal place.
// Example: 400 days → 1.1 years.
func AgeInYears(days float64) float64 {
	return math.Round(days/365*10) / 10
}
