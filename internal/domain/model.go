package domain

import "time"

// Core domain models shared by adapters, services and workers. Provider payloads
// are decoded into these at the adapter boundary; nothing untyped crosses it.

// Source identifies the directory a business sighting came from.
type Source string

const (
	SourceGooglePlaces Source = "google_places"
	SourceYelp         Source = "yelp"
	SourceFoursquare   Source = "foursquare"
)

// SearchQuery is the input of one discovery run.
type SearchQuery struct {
	Location     string   `json:"location" validate:"required"`
	BusinessType string   `json:"businessType" validate:"required"`
	Keywords     []string `json:"keywords,omitempty"`
	RadiusKm     float64  `json:"radiusKm" validate:"gte=0"`
}

// Term is the free-text search term sent to directories.
func (q SearchQuery) Term() string {
	term := q.BusinessType
	for _, k := range q.Keywords {
		if k == "" {
			continue
		}
		term += " " + k
	}
	return term
}

type BusinessRecord struct {
	Name         string              `json:"name"`
	Address      string              `json:"address"`
	Phone        string              `json:"phone,omitempty"`
	Sources      Sources             `json:"sources"`
	BusinessType string              `json:"businessType,omitempty"`
	KnownWebsite string              `json:"knownWebsite,omitempty"`
	DiscoveredAt time.Time           `json:"discoveredAt"`
	Verification *VerificationResult `json:"verification,omitempty"`
}

// Sources is an insertion-ordered set.
type Sources []Source

func (s Sources) Has(src Source) bool {
	for _, v := range s {
		if v == src {
			return true
		}
	}
	return false
}

// Union returns s followed by every source of other not already in s.
func (s Sources) Union(other Sources) Sources {
	out := make(Sources, 0, len(s)+len(other))
	for _, v := range s {
		if !out.Has(v) {
			out = append(out, v)
		}
	}
	for _, v := range other {
		if !out.Has(v) {
			out = append(out, v)
		}
	}
	return out
}

type CandidateOrigin string

const (
	OriginHinted    CandidateOrigin = "hinted"
	OriginSearch    CandidateOrigin = "search"
	OriginGenerated CandidateOrigin = "generated"
)

// DomainCandidate is a guessed or hinted host evaluated for one business.
type DomainCandidate struct {
	Domain string          `json:"domain"`
	Origin CandidateOrigin `json:"origin"`
}

type Status string

const (
	StatusActive            Status = "active"
	StatusInactive          Status = "inactive"
	StatusParked            Status = "parked"
	StatusNotRegistered     Status = "not_registered"
	StatusVerificationError Status = "verification_error"
	StatusNoActiveWebsite   Status = "no_active_website"
	StatusNoDomainsFound    Status = "no_domains_found"
)

// Active reports whether the status belongs to the set allowed with HasWebsite=true.
func (s Status) Active() bool {
	return s == StatusActive || s == StatusInactive
}

type Evidence string

const (
	EvidenceProviderHint       Evidence = "provider-hint"
	EvidenceRegistrationLookup Evidence = "registration-lookup"
	EvidenceHTTPProbe          Evidence = "http-probe"
	EvidenceNone               Evidence = "none"
)

type VerificationResult struct {
	HasWebsite   bool            `json:"hasWebsite"`
	Domain       string          `json:"domain,omitempty"`
	Origin       CandidateOrigin `json:"origin,omitempty"`
	Status       Status          `json:"status"`
	Evidence     Evidence        `json:"evidence"`
	Registrar    string          `json:"registrar,omitempty"`
	RegisteredOn string          `json:"registeredOn,omitempty"`
	Probed       int             `json:"probed"`
	CheckedAt    time.Time       `json:"checkedAt"`
}

// Registration is what a registry lookup knows about a registrable domain.
type Registration struct {
	Domain     string
	Registered bool
	Registrar  string
	CreatedOn  string
}

// DiscoveryRun tracks one queued discovery request in server mode.
type DiscoveryRun struct {
	ID         string      `json:"id"`
	Query      SearchQuery `json:"query"`
	Status     RunStatus   `json:"status"`
	Error      string      `json:"error,omitempty"`
	Found      int         `json:"found"`
	CreatedAt  time.Time   `json:"createdAt"`
	StartedAt  *time.Time  `json:"startedAt,omitempty"`
	FinishedAt *time.Time  `json:"finishedAt,omitempty"`
}

type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)
