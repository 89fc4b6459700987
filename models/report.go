package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category enum
type Category string

const (
	CategoryPothole      Category = "pothole"
	CategoryStreetlight  Category = "streetlight"
	CategoryGarbage      Category = "garbage"
	CategoryDrainage     Category = "drainage"
	CategoryRoad         Category = "road"
	CategoryWater        Category = "water"
	CategoryElectricity  Category = "electricity"
	CategorySafety       Category = "safety"
	CategoryNoise        Category = "noise"
	CategoryConstruction Category = "construction"
	CategoryOther        Category = "other"
)

var validCategories = map[Category]bool{
	CategoryPothole: true, CategoryStreetlight: true, CategoryGarbage: true,
	CategoryDrainage: true, CategoryRoad: true, CategoryWater: true,
	CategoryElectricity: true, CategorySafety: true, CategoryNoise: true,
	CategoryConstruction: true, CategoryOther: true,
}

func (c Category) Valid() bool { return validCategories[c] }

// Status enum
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusRejected   Status = "rejected"
	StatusDuplicate  Status = "duplicate"
)

var validStatuses = map[Status]bool{
	StatusNew: true, StatusInProgress: true, StatusResolved: true,
	StatusRejected: true, StatusDuplicate: true,
}

func (s Status) Valid() bool { return validStatuses[s] }

// Priority enum
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var validPriorities = map[Priority]bool{
	PriorityLow: true, PriorityMedium: true, PriorityHigh: true, PriorityUrgent: true,
}

func (p Priority) Valid() bool { return validPriorities[p] }

// LocalizedText holds a text field in its original language next to its
// most recently computed translation. Original is immutable after creation.
type LocalizedText struct {
	Original   string `bson:"original" json:"original"`
	Translated string `bson:"translated" json:"translated"`
}

// GeoPoint is a GeoJSON Point. Coordinates are [lng, lat] by convention.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

func (p GeoPoint) Lng() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

func (p GeoPoint) Lat() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// Location describes where the issue was observed
type Location struct {
	Address     string   `bson:"address" json:"address"`
	Coordinates GeoPoint `bson:"coordinates" json:"coordinates"`
	City        string   `bson:"city,omitempty" json:"city,omitempty"`
	State       string   `bson:"state,omitempty" json:"state,omitempty"`
	ZipCode     string   `bson:"zipCode,omitempty" json:"zipCode,omitempty"`
	Landmark    string   `bson:"landmark,omitempty" json:"landmark,omitempty"`
}

// Image is the stored result of an object-storage upload
type Image struct {
	URL          string `bson:"url" json:"url"`
	PublicID     string `bson:"publicId" json:"publicId"`
	ThumbnailURL string `bson:"thumbnailUrl,omitempty" json:"thumbnailUrl,omitempty"`
}

// Reporter identifies who filed the report. UserID is a weak reference;
// anonymous submissions leave it nil.
type Reporter struct {
	Name   string              `bson:"name" json:"name"`
	Email  string              `bson:"email" json:"email"`
	Phone  string              `bson:"phone,omitempty" json:"phone,omitempty"`
	UserID *primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
}

// Response is one administrative reply, translated into the report's language
type Response struct {
	ID               string        `bson:"id" json:"id"`
	Text             LocalizedText `bson:"text" json:"text"`
	RespondedBy      string        `bson:"respondedBy" json:"respondedBy"`
	RespondedByEmail string        `bson:"respondedByEmail,omitempty" json:"respondedByEmail,omitempty"`
	RespondedAt      time.Time     `bson:"respondedAt" json:"respondedAt"`
	Language         string        `bson:"language" json:"language"`
}

// StatusChange is one entry of the append-only status audit trail
type StatusChange struct {
	Status    Status    `bson:"status" json:"status"`
	ChangedBy string    `bson:"changedBy,omitempty" json:"changedBy,omitempty"`
	ChangedAt time.Time `bson:"changedAt" json:"changedAt"`
	Comment   string    `bson:"comment,omitempty" json:"comment,omitempty"`
}

// Resolution is populated exactly once, on the first transition into resolved
type Resolution struct {
	ResolvedAt          *time.Time `bson:"resolvedAt" json:"resolvedAt"`
	ResolvedBy          string     `bson:"resolvedBy,omitempty" json:"resolvedBy,omitempty"`
	ResolutionNotes     string     `bson:"resolutionNotes,omitempty" json:"resolutionNotes,omitempty"`
	ResolutionTimeHours *int       `bson:"resolutionTimeHours" json:"resolutionTimeHours"`
}

// Report is a citizen-submitted civic issue record
type Report struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title         LocalizedText        `bson:"title" json:"title"`
	Description   LocalizedText        `bson:"description" json:"description"`
	Category      Category             `bson:"category" json:"category"`
	Location      Location             `bson:"location" json:"location"`
	Image         *Image               `bson:"image,omitempty" json:"image,omitempty"`
	Status        Status               `bson:"status" json:"status"`
	Priority      Priority             `bson:"priority" json:"priority"`
	Language      string               `bson:"language" json:"language"`
	AdminLanguage string               `bson:"adminLanguage" json:"adminLanguage"`
	Responses     []Response           `bson:"responses" json:"responses"`
	ReportedBy    Reporter             `bson:"reportedBy" json:"reportedBy"`
	StatusHistory []StatusChange       `bson:"statusHistory" json:"statusHistory"`
	Votes         int                  `bson:"votes" json:"votes"`
	VotedBy       []primitive.ObjectID `bson:"votedBy" json:"votedBy"`
	Views         int                  `bson:"views" json:"views"`
	Tags          []string             `bson:"tags" json:"tags"`
	Resolution    Resolution           `bson:"resolution" json:"resolution"`
	AdminNotes    string               `bson:"adminNotes,omitempty" json:"-"`
	IsFlagged     bool                 `bson:"isFlagged" json:"isFlagged"`
	FlagReason    string               `bson:"flagReason,omitempty" json:"flagReason,omitempty"`
	IsDeleted     bool                 `bson:"isDeleted" json:"isDeleted"`
	AssignedTo    *primitive.ObjectID  `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// ApplyStatus moves the report to newStatus and appends the audit entry.
// The first transition into resolved stamps the resolution; re-entering
// resolved later leaves the existing resolution untouched.
func (r *Report) ApplyStatus(newStatus Status, changedBy, comment string, now time.Time) {
	r.Status = newStatus
	r.StatusHistory = append(r.StatusHistory, StatusChange{
		Status:    newStatus,
		ChangedBy: changedBy,
		ChangedAt: now,
		Comment:   comment,
	})
	r.UpdatedAt = now

	if newStatus == StatusResolved && r.Resolution.ResolvedAt == nil {
		resolvedAt := now
		hours := int(now.Sub(r.CreatedAt).Hours())
		r.Resolution.ResolvedAt = &resolvedAt
		r.Resolution.ResolvedBy = changedBy
		r.Resolution.ResolutionTimeHours = &hours
	}
}

// ApplyUpvote adds userID to the voter set if absent. Returns false for a
// duplicate vote, which leaves the report unchanged.
func (r *Report) ApplyUpvote(userID primitive.ObjectID, now time.Time) bool {
	for _, id := range r.VotedBy {
		if id == userID {
			return false
		}
	}
	r.VotedBy = append(r.VotedBy, userID)
	r.Votes++
	r.UpdatedAt = now
	return true
}

// Clone returns a deep copy, so callers can localize or mutate a snapshot
// without touching shared state.
func (r *Report) Clone() *Report {
	cp := *r
	cp.Responses = append([]Response(nil), r.Responses...)
	cp.StatusHistory = append([]StatusChange(nil), r.StatusHistory...)
	cp.VotedBy = append([]primitive.ObjectID(nil), r.VotedBy...)
	cp.Tags = append([]string(nil), r.Tags...)
	cp.Location.Coordinates.Coordinates = append([]float64(nil), r.Location.Coordinates.Coordinates...)
	if r.Image != nil {
		img := *r.Image
		cp.Image = &img
	}
	if r.Resolution.ResolvedAt != nil {
		t := *r.Resolution.ResolvedAt
		cp.Resolution.ResolvedAt = &t
	}
	if r.Resolution.ResolutionTimeHours != nil {
		h := *r.Resolution.ResolutionTimeHours
		cp.Resolution.ResolutionTimeHours = &h
	}
	if r.AssignedTo != nil {
		id := *r.AssignedTo
		cp.AssignedTo = &id
	}
	if r.ReportedBy.UserID != nil {
		id := *r.ReportedBy.UserID
		cp.ReportedBy.UserID = &id
	}
	return &cp
}
