// Package metadata synthesizes the self-describing passport document. The
// renderer is a pure function of record state: no timestamps, no randomness,
// no map iteration, so a fixed state always produces byte-identical output.
package metadata

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"soulpass/internal/passport/models"
)

// Attribute is one entry of the document's attributes list. Downstream
// readers rely on both the trait names and their positions, so the order
// built in Render is a contract.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// Document is the synthesized metadata payload.
type Document struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

const description = "Soulbound achievement passport recording membership tier, ecosystem level, rewards, and badge history."

// Renderer produces metadata documents. A per-record custom URI wins over
// everything; otherwise a configured default base URI (external hosting)
// wins over synthesis.
type Renderer struct {
	imageURI string

	mu          sync.RWMutex
	defaultBase string
}

// NewRenderer creates a renderer. imageURI is the static artwork reference
// embedded in synthesized documents.
func NewRenderer(imageURI string) *Renderer {
	return &Renderer{imageURI: imageURI}
}

// SetDefaultBase sets (or clears, with "") the global metadata base URI.
// When set, Render returns base + token id instead of synthesizing.
func (r *Renderer) SetDefaultBase(base string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultBase = base
}

// DefaultBase returns the current global base URI.
func (r *Renderer) DefaultBase() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultBase
}

// Render returns the metadata document string for the record: the custom URI
// verbatim if set, the default base + id if configured, otherwise a
// base64-embedded JSON document so readers need no extra network hop.
func (r *Renderer) Render(p *models.Passport) (string, error) {
	if p.CustomMetadataURI != "" {
		return p.CustomMetadataURI, nil
	}
	if base := r.DefaultBase(); base != "" {
		return base + p.ID.String(), nil
	}

	doc := Document{
		Name:        fmt.Sprintf("Passport #%s", p.ID.String()),
		Description: description,
		Image:       r.imageURI,
		Attributes:  buildAttributes(p),
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal metadata document: %w", err)
	}
	return "data:application/json;base64," + base64.StdEncoding.EncodeToString(payload), nil
}

// buildAttributes assembles the fixed seven attributes followed by one Badge
// entry per badge in insertion order.
func buildAttributes(p *models.Passport) []Attribute {
	status := "Inactive"
	if p.Active {
		status = "Active"
	}

	attrs := make([]Attribute, 0, 7+len(p.Badges))
	attrs = append(attrs,
		Attribute{TraitType: "Rank", Value: p.Rank},
		Attribute{TraitType: "Member Tier", Value: p.MemberTier},
		Attribute{TraitType: "Ecosystem Level", Value: p.EcosystemLevel.String()},
		Attribute{TraitType: "SVT Earned", Value: p.TotalRewardEarned},
		Attribute{TraitType: "Achievements", Value: p.AchievementCount},
		Attribute{TraitType: "NFTs Owned", Value: p.CollectibleCount},
		Attribute{TraitType: "Active Status", Value: status},
	)
	for _, badge := range p.Badges {
		attrs = append(attrs, Attribute{TraitType: "Badge", Value: badge})
	}
	return attrs
}
