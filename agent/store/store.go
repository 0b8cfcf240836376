package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

var ErrNotFound = errors.New("record not found")

const StatusActive = "Active"

// Business is one listing. The core only reads it.
type Business struct {
	bun.BaseModel `bun:"table:businesses,alias:b" json:"-"`

	ID            string    `bun:"id,pk" json:"id"`
	Slug          string    `bun:"slug,unique,notnull" json:"slug"`
	Name          string    `bun:"name,notnull" json:"name"`
	Description   string    `bun:"description" json:"description,omitempty"`
	Address       string    `bun:"address" json:"address,omitempty"`
	City          string    `bun:"city" json:"city,omitempty"`
	Phone         string    `bun:"phone" json:"phone,omitempty"`
	WhatsApp      string    `bun:"whatsapp" json:"whatsapp,omitempty"`
	Email         string    `bun:"email" json:"email,omitempty"`
	Website       string    `bun:"website" json:"website,omitempty"`
	Facebook      string    `bun:"facebook" json:"facebook,omitempty"`
	Instagram     string    `bun:"instagram" json:"instagram,omitempty"`
	TikTok        string    `bun:"tiktok" json:"tiktok,omitempty"`
	YouTube       string    `bun:"youtube" json:"youtube,omitempty"`
	OpeningHour   *int      `bun:"opening_hour" json:"opening_hour,omitempty"`
	ClosingHour   *int      `bun:"closing_hour" json:"closing_hour,omitempty"`
	Verified      bool      `bun:"verified,notnull,default:false" json:"verified"`
	Featured      bool      `bun:"featured,notnull,default:false" json:"featured"`
	Status        string    `bun:"status,notnull" json:"status"`
	Tags          []string  `bun:"tags,array" json:"tags,omitempty"`
	Views         int64     `bun:"views,notnull,default:0" json:"views"`
	RatingAvg     float64   `bun:"rating_avg,notnull,default:0" json:"rating_avg"`
	RatingCount   int       `bun:"rating_count,notnull,default:0" json:"rating_count"`
	FeaturedImage string    `bun:"featured_image" json:"featured_image,omitempty"`
	Images        []string  `bun:"images,array" json:"images,omitempty"`
	Latitude      *float64  `bun:"latitude" json:"latitude,omitempty"`
	Longitude     *float64  `bun:"longitude" json:"longitude,omitempty"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

func (b Business) Active() bool {
	return b.Status == StatusActive
}

type Field string

const (
	FieldName        Field = "name"
	FieldDescription Field = "description"
	FieldTags        Field = "tags"
	FieldAddress     Field = "address"
	FieldCity        Field = "city"
)

// TextMatch matches when any term is a case-insensitive substring of any field.
type TextMatch struct {
	Terms  []string
	Fields []Field
}

func (m *TextMatch) empty() bool {
	if m == nil {
		return true
	}
	for _, t := range m.Terms {
		if strings.TrimSpace(t) != "" {
			return len(m.Fields) == 0
		}
	}
	return true
}

type Filter struct {
	ID         string
	Slug       string
	ActiveOnly bool
	Verified   *bool
	Featured   *bool
	Match      *TextMatch
}

func Active() Filter {
	return Filter{ActiveOnly: true}
}

type Sort int

const (
	SortNatural Sort = iota
	SortViewsDesc
)

type TagCount struct {
	Tag   string `bun:"tag" json:"tag"`
	Count int    `bun:"count" json:"count"`
}

// RecordStore is the query surface over the business collection.
type RecordStore interface {
	// FindOne returns ErrNotFound when nothing matches.
	FindOne(ctx context.Context, f Filter) (*Business, error)
	FindMany(ctx context.Context, f Filter, sort Sort, skip, limit int) ([]Business, error)
	AggregateTagCounts(ctx context.Context, f Filter, limit int) ([]TagCount, error)
}

func terms(m *TextMatch) []string {
	out := make([]string, 0, len(m.Terms))
	for _, t := range m.Terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
