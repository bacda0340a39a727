package models

import (
	"time"

	"gorm.io/datatypes"
)

// Project is a portfolio project record as stored in the `projects` table.
// ID is assigned by the database; a zero ID means the record has not been
// inserted yet.
type Project struct {
	ID             int64                       `json:"id" db:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Name           string                      `json:"name" db:"name" gorm:"column:name;type:text;not null" validate:"notblank"`
	CompanyName    string                      `json:"company_name" db:"company_name" gorm:"column:company_name;type:text;not null" validate:"notblank"`
	PartnerCompany string                      `json:"partner_company" db:"partner_company" gorm:"column:partner_company;type:text"`
	Location       string                      `json:"location" db:"location" gorm:"column:location;type:text"`
	ProjectType    string                      `json:"project_type" db:"project_type" gorm:"column:project_type;type:text"`
	MainImage      string                      `json:"main_image" db:"main_image" gorm:"column:main_image;type:text"`
	SubImages      datatypes.JSONSlice[string] `json:"sub_images" db:"sub_images" gorm:"column:sub_images;type:jsonb;not null;default:'[]'"`
	Description    string                      `json:"description" db:"description" gorm:"column:description;type:text"`
	Video          string                      `json:"video" db:"video" gorm:"column:video;type:text"`
	Features       datatypes.JSONSlice[string] `json:"features" db:"features" gorm:"column:features;type:jsonb;not null;default:'[]'"`
	Technologies   datatypes.JSONSlice[string] `json:"technologies" db:"technologies" gorm:"column:technologies;type:jsonb;not null;default:'[]'"`
	Behance        string                      `json:"behance" db:"behance" gorm:"column:behance;type:text"`
	CreatedAt      time.Time                   `json:"created_at" db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

// TableName pins the table name used by the hosted schema.
func (Project) TableName() string {
	return "projects"
}

// Clone returns a deep copy, so callers can mutate sequences freely.
func (p Project) Clone() Project {
	c := p
	c.SubImages = cloneStrings(p.SubImages)
	c.Features = cloneStrings(p.Features)
	c.Technologies = cloneStrings(p.Technologies)
	return c
}

// Normalize replaces nil sequences with empty ones so they are stored and
// serialized as [] instead of null.
func (p *Project) Normalize() {
	if p.SubImages == nil {
		p.SubImages = datatypes.JSONSlice[string]{}
	}
	if p.Features == nil {
		p.Features = datatypes.JSONSlice[string]{}
	}
	if p.Technologies == nil {
		p.Technologies = datatypes.JSONSlice[string]{}
	}
}

func cloneStrings(in datatypes.JSONSlice[string]) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], len(in))
	copy(out, in)
	return out
}
