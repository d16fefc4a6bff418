package handler

import (
	id "soulpass/pkg/domain"
	dErrors "soulpass/pkg/domain-errors"
)

type createRequest struct {
	Owner string `json:"owner"`
}

type batchCreateRequest struct {
	Owners []string `json:"owners"`
}

// parseOwners maps the raw batch to addresses. Entries that fail to parse
// become the null identity so the service can count them as skips instead of
// rejecting the whole batch.
func (r batchCreateRequest) parseOwners() []id.Address {
	owners := make([]id.Address, len(r.Owners))
	for i, raw := range r.Owners {
		owner, err := id.ParseAddress(raw)
		if err != nil {
			continue
		}
		owners[i] = owner
	}
	return owners
}

type transferRequest struct {
	To string `json:"to"`
}

type updateCountsRequest struct {
	MemberTier   string `json:"member_tier"`
	RewardTotal  uint64 `json:"reward_total"`
	Achievements uint64 `json:"achievement_count"`
	Collectibles uint64 `json:"collectible_count"`
}

func (r updateCountsRequest) validate() error {
	if r.MemberTier == "" {
		return dErrors.New(dErrors.CodeBadRequest, "member_tier is required")
	}
	return nil
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

type rankBadgeRequest struct {
	Rank  string `json:"rank"`
	Badge string `json:"badge"`
}

func (r rankBadgeRequest) validate() error {
	if r.Rank == "" {
		return dErrors.New(dErrors.CodeBadRequest, "rank is required")
	}
	if r.Badge == "" {
		return dErrors.New(dErrors.CodeBadRequest, "badge is required")
	}
	return nil
}

type metadataURIRequest struct {
	URI string `json:"uri"`
}

type metadataBaseRequest struct {
	Base string `json:"base"`
}
