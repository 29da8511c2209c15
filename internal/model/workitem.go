package model

import "fmt"

// ServiceType selects the generation plan used for a service.
type ServiceType string

const (
	ServiceTypeLitigation ServiceType = "litigation" // Court-facing services; plan extracts local entities.
	ServiceTypeAdvisory   ServiceType = "advisory"   // Out-of-court services; plan emits custom sections.
)

// Valid reports whether t is a known service type.
func (t ServiceType) Valid() bool {
	switch t {
	case ServiceTypeLitigation, ServiceTypeAdvisory:
		return true
	default:
		return false
	}
}

// Service is a business service offered on the site.
type Service struct {
	ID     int64       `json:"id"`
	Key    string      `json:"key"`
	Name   string      `json:"name"`
	Type   ServiceType `json:"type"`
	Active bool        `json:"active"`
}

// Locality is a town or city the site has landing pages for.
type Locality struct {
	ID       int64  `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Province string `json:"province"`
	Active   bool   `json:"active"`
}

// WorkItem identifies one (service, locality) generation job. It is built
// by the batch orchestrator and is not modified during a run.
type WorkItem struct {
	ServiceID        int64       `json:"service_id"`
	ServiceKey       string      `json:"service_key"`
	ServiceName      string      `json:"service_name"`
	ServiceType      ServiceType `json:"service_type"`
	LocalityID       int64       `json:"locality_id"`
	LocalitySlug     string      `json:"locality_slug"`
	LocalityName     string      `json:"locality_name"`
	LocalityProvince string      `json:"locality_province"`
	ForceRegenerate  bool        `json:"force_regenerate"`
}

// NewWorkItem combines a service and a locality into a WorkItem.
func NewWorkItem(svc Service, loc Locality, force bool) WorkItem {
	return WorkItem{
		ServiceID:        svc.ID,
		ServiceKey:       svc.Key,
		ServiceName:      svc.Name,
		ServiceType:      svc.Type,
		LocalityID:       loc.ID,
		LocalitySlug:     loc.Slug,
		LocalityName:     loc.Name,
		LocalityProvince: loc.Province,
		ForceRegenerate:  force,
	}
}

// String returns "service/locality" for log lines.
func (w WorkItem) String() string {
	return fmt.Sprintf("%s/%s", w.ServiceKey, w.LocalitySlug)
}
