package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"soulpass/internal/events"
	"soulpass/internal/metadata"
	"soulpass/internal/passport/models"
	passportstore "soulpass/internal/passport/store/passport"
	id "soulpass/pkg/domain"
	dErrors "soulpass/pkg/domain-errors"
	"soulpass/pkg/requestcontext"
)

// =============================================================================
// Ledger Service Test Suite
// =============================================================================
// Justification for unit tests: the ledger concentrates the authority/pause
// gating, soulbound enforcement, batch skip semantics, and fail-closed event
// emission. These paths are awkward to exercise through HTTP tests, which
// would need a token per caller identity.

func addr(s string) id.Address {
	a, err := id.ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

var (
	authorityAddr = addr("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	aliceAddr     = addr("0x1111111111111111111111111111111111111111")
	bobAddr       = addr("0x2222222222222222222222222222222222222222")
	carolAddr     = addr("0x3333333333333333333333333333333333333333")
)

type LedgerSuite struct {
	suite.Suite
	store    *passportstore.InMemory
	renderer *metadata.Renderer
	sink     *events.InMemoryStore
	ledger   *Ledger
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.store = passportstore.NewInMemory()
	s.renderer = metadata.NewRenderer("https://img.example/passport.png")
	s.sink = events.NewInMemoryStore()
	s.ledger = New(s.store, s.renderer, authorityAddr,
		WithPublisher(events.NewPublisher(s.sink)),
	)
}

// asAuthority returns a context whose caller is the ledger authority.
func (s *LedgerSuite) asAuthority() context.Context {
	return requestcontext.WithCaller(context.Background(), authorityAddr)
}

func (s *LedgerSuite) asCaller(caller id.Address) context.Context {
	return requestcontext.WithCaller(context.Background(), caller)
}

func (s *LedgerSuite) eventTypes(tokenID id.TokenID) []events.Type {
	recorded, err := s.sink.ListByToken(context.Background(), tokenID)
	s.Require().NoError(err)
	types := make([]events.Type, 0, len(recorded))
	for _, e := range recorded {
		types = append(types, e.Type)
	}
	return types
}

// =============================================================================
// Create Tests
// =============================================================================

func (s *LedgerSuite) TestCreate() {
	s.Run("assigns sequential ids starting at zero", func() {
		first, err := s.ledger.Create(s.asAuthority(), aliceAddr)
		s.NoError(err)
		s.Equal(id.TokenID(0), first)

		second, err := s.ledger.Create(s.asAuthority(), bobAddr)
		s.NoError(err)
		s.Equal(id.TokenID(1), second)
	})

	s.Run("rejects the null identity", func() {
		_, err := s.ledger.Create(s.asAuthority(), id.Address{})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidOwner))
	})

	s.Run("rejects a second passport for the same owner", func() {
		_, err := s.ledger.Create(s.asAuthority(), aliceAddr)
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateOwner))
	})

	s.Run("rejects non-authority callers", func() {
		_, err := s.ledger.Create(s.asCaller(bobAddr), carolAddr)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejects anonymous callers", func() {
		_, err := s.ledger.Create(context.Background(), carolAddr)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("new passports start with defaults", func() {
		tokenID, err := s.ledger.Create(s.asAuthority(), carolAddr)
		s.Require().NoError(err)

		p, err := s.ledger.Read(context.Background(), tokenID)
		s.Require().NoError(err)
		s.Equal(models.DefaultMemberTier, p.MemberTier)
		s.Equal(models.DefaultRank, p.Rank)
		s.Equal(models.LevelNewcomer, p.EcosystemLevel)
		s.True(p.Active)
		s.Empty(p.Badges)
	})

	s.Run("emits a creation event", func() {
		recorded, err := s.sink.ListByToken(context.Background(), 0)
		s.Require().NoError(err)
		s.Require().Len(recorded, 1)
		s.Equal(events.TypePassportCreated, recorded[0].Type)
		s.Equal(aliceAddr.String(), recorded[0].Owner)
		s.Equal(authorityAddr.String(), recorded[0].Actor)
	})
}

// =============================================================================
// Transfer Tests (Soulbound Enforcement)
// =============================================================================

func (s *LedgerSuite) TestTransfer() {
	tokenID, err := s.ledger.Create(s.asAuthority(), aliceAddr)
	s.Require().NoError(err)

	s.Run("fails for the authority", func() {
		err := s.ledger.Transfer(s.asAuthority(), tokenID, bobAddr)
		s.True(dErrors.HasCode(err, dErrors.CodeNonTransferable))
	})

	s.Run("fails for the owner", func() {
		err := s.ledger.Transfer(s.asCaller(aliceAddr), tokenID, bobAddr)
		s.True(dErrors.HasCode(err, dErrors.CodeNonTransferable))
	})

	s.Run("leaves ownership untouched", func() {
		p, err := s.ledger.Read(context.Background(), tokenID)
		s.Require().NoError(err)
		s.Equal(aliceAddr, p.Owner)
	})
}

// =============================================================================
// Destroy Tests
// =============================================================================

func (s *LedgerSuite) TestDestroy() {
	s.Run("only the owner may destroy", func() {
		tokenID, err := s.ledger.Create(s.asAuthority(), aliceAddr)
		s.Require().NoError(err)

		err = s.ledger.Destroy(s.asAuthority(), tokenID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		err = s.ledger.Destroy(s.asCaller(aliceAddr), tokenID)
		s.NoError(err)

		_, err = s.ledger.Read(context.Background(), tokenID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("freed owner can re-enroll under a fresh id", func() {
		tokenID, err := s.ledger.Create(s.asAuthority(), aliceAddr)
		s.Require().NoError(err)
		s.Equal(id.TokenID(1), tokenID)
	})

	s.Run("stays available while paused", func() {
		s.Require().NoError(s.ledger.Pause(s.asAuthority()))
		defer func() { s.Require().NoError(s.ledger.Unpause(s.asAuthority())) }()

		err := s.ledger.Destroy(s.asCaller(aliceAddr), 1)
		s.NoError(err)
	})

	s.Run("unknown id is not found", func() {
		err := s.ledger.Destroy(s.asCaller(aliceAddr), 999)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// Batch Onboarding Tests
// =============================================================================

func (s *LedgerSuite) TestBatchCreate() {
	s.Run("empty batch is rejected", func() {
		_, err := s.ledger.BatchCreate(s.asAuthority(), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeEmptyBatch))
	})

	s.Run("oversized batch is rejected before any creation", func() {
		owners := make([]id.Address, MaxBatchSize+1)
		for i := range owners {
			owners[i] = addr(fmt.Sprintf("0x%040x", i+0x1000))
		}
		_, err := s.ledger.BatchCreate(s.asAuthority(), owners)
		s.True(dErrors.HasCode(err, dErrors.CodeBatchTooLarge))

		count, err := s.store.Count(context.Background())
		s.Require().NoError(err)
		s.Zero(count)
	})

	s.Run("requires the authority", func() {
		_, err := s.ledger.BatchCreate(s.asCaller(aliceAddr), []id.Address{bobAddr})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("skips null and duplicate entries and keeps going", func() {
		_, err := s.ledger.Create(s.asAuthority(), aliceAddr)
		s.Require().NoError(err)

		created, err := s.ledger.BatchCreate(s.asAuthority(), []id.Address{
			bobAddr,
			{},        // null identity: skipped
			aliceAddr, // existing holder: skipped
			carolAddr,
			carolAddr, // duplicate within the batch: skipped
		})
		s.NoError(err)
		s.Equal([]id.TokenID{1, 2}, created)

		bobID, err := s.ledger.IDOf(context.Background(), bobAddr)
		s.Require().NoError(err)
		s.Equal(id.TokenID(1), bobID)

		carolID, err := s.ledger.IDOf(context.Background(), carolAddr)
		s.Require().NoError(err)
		s.Equal(id.TokenID(2), carolID)
	})

	s.Run("emits one creation event per created passport", func() {
		s.Equal([]events.Type{events.TypePassportCreated}, s.eventTypes(1))
		s.Equal([]events.Type{events.TypePassportCreated}, s.eventTypes(2))
	})

	s.Run("a batch of exactly the cap succeeds in full", func() {
		before, err := s.store.Count(context.Background())
		s.Require().NoError(err)

		owners := make([]id.Address, MaxBatchSize)
		for i := range owners {
			owners[i] = addr(fmt.Sprintf("0x%040x", i+0x2000))
		}
		created, err := s.ledger.BatchCreate(s.asAuthority(), owners)
		s.Require().NoError(err)
		s.Require().Len(created, MaxBatchSize)
		for i, tokenID := range created {
			s.Equal(created[0]+id.TokenID(i), tokenID)
		}

		after, err := s.store.Count(context.Background())
		s.Require().NoError(err)
		s.Equal(before+MaxBatchSize, after)
	})
}

// =============================================================================
// Profile Tests (Counts, Level Derivation, Active Flag)
// =============================================================================

func (s *LedgerSuite) TestUpdateCounts() {
	tokenID, err := s.ledger.Create(s.asAuthority(), aliceAddr)
	s.Require().NoError(err)

	s.Run("overwrites counters and rederives the level", func() {
		err := s.ledger.UpdateCounts(s.asAuthority(), tokenID, "Gold", 2500, 7, 3)
		s.NoError(err)

		p, err := s.ledger.Read(context.Background(), tokenID)
		s.Require().NoError(err)
		s.Equal("Gold", p.MemberTier)
		s.Equal(uint64(2500), p.TotalRewardEarned)
		s.Equal(uint64(7), p.AchievementCount)
		s.Equal(uint64(3), p.CollectibleCount)
		s.Equal(models.LevelAdvanced, p.EcosystemLevel)
	})

	s.Run("level can move down when counts do", func() {
		err := s.ledger.UpdateCounts(s.asAuthority(), tokenID, "Gold", 2500, 1, 3)
		s.NoError(err)

		p, err := s.ledger.Read(context.Background(), tokenID)
		s.Require().NoError(err)
		s.Equal(models.LevelNewcomer, p.EcosystemLevel)
	})

	s.Run("unknown id is not found", func() {
		err := s.ledger.UpdateCounts(s.asAuthority(), 999, "Gold", 1, 1, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("requires the authority", func() {
		err := s.ledger.UpdateCounts(s.asCaller(aliceAddr), tokenID, "Gold", 1, 1, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("emits an update event with tier and reward total", func() {
		recorded, err := s.sink.ListByToken(context.Background(), tokenID)
		s.Require().NoError(err)
		s.Require().GreaterOrEqual(len(recorded), 2)
		last := recorded[len(recorded)-1]
		s.Equal(events.TypeCountsUpdated, last.Type)
		s.Equal("Gold", last.MemberTier)
		s.Equal(uint64(2500), last.RewardTotal)
	})
}

func (s *LedgerSuite) TestSetActive() {
	tokenID, err := s.ledger.Create(s.asAuthority(), aliceAddr)
	s.Require().NoError(err)

	s.Run("deactivation flips the flag and emits deactivated", func() {
		err := s.ledger.SetActive(s.asAuthority(), tokenID, false)
		s.NoError(err)

		p, err := s.ledger.Read(context.Background(), tokenID)
		s.Require().NoError(err)
		s.False(p.Active)

		types := s.eventTypes(tokenID)
		s.Equal(events.TypeDeactivated, types[len(types)-1])
	})

	s.Run("reactivation emits activated", func() {
		err := s.ledger.SetActive(s.asAuthority(), tokenID, true)
		s.NoError(err)

		p, err := s.ledger.Read(context.Background(), tokenID)
		s.Require().NoError(err)
		s.True(p.Active)

		types := s.eventTypes(tokenID)
		s.Equal(events.TypeActivated, types[len(types)-1])
	})
}

// =============================================================================
// Rank and Badge Tests
// =============================================================================

func (s *LedgerSuite) TestUpdateRankBadge() {
	tokenID, err := s.ledger.Create(s.asAuthority(), aliceAddr)
	s.Require().NoError(err)

	s.Run("replaces rank and appends the badge", func() {
		err := s.ledger.UpdateRankBadge(s.asAuthority(), tokenID, "Gold Partner", "early-adopter")
		s.NoError(err)

		rank, err := s.ledger.RankOf(context.Background(), tokenID)
		s.Require().NoError(err)
		s.Equal("Gold Partner", rank)

		badges, err := s.ledger.BadgesOf(context.Background(), tokenID)
		s.Require().NoError(err)
		s.Equal([]string{"early-adopter"}, badges)
	})

	s.Run("badge history only grows", func() {
		err := s.ledger.UpdateRankBadge(s.asAuthority(), tokenID, "Platinum Partner", "early-adopter")
		s.NoError(err)

		badges, err := s.ledger.BadgesOf(context.Background(), tokenID)
		s.Require().NoError(err)
		s.Equal([]string{"early-adopter", "early-adopter"}, badges)
	})

	s.Run("emits rank then badge events", func() {
		types := s.eventTypes(tokenID)
		s.Require().GreaterOrEqual(len(types), 3)
		s.Equal(events.TypeRankChanged, types[len(types)-2])
		s.Equal(events.TypeBadgeAdded, types[len(types)-1])
	})

	s.Run("requires the authority", func() {
		err := s.ledger.UpdateRankBadge(s.asCaller(aliceAddr), tokenID, "X", "y")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// =============================================================================
// Lifecycle Tests (Pause Gate)
// =============================================================================

func (s *LedgerSuite) TestLifecycle() {
	tokenID, err := s.ledger.Create(s.asAuthority(), aliceAddr)
	s.Require().NoError(err)

	s.Run("pause requires the authority", func() {
		err := s.ledger.Pause(s.asCaller(aliceAddr))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.False(s.ledger.Paused())
	})

	s.Run("pause blocks every mutation except destroy", func() {
		s.Require().NoError(s.ledger.Pause(s.asAuthority()))
		s.True(s.ledger.Paused())

		_, err := s.ledger.Create(s.asAuthority(), bobAddr)
		s.True(dErrors.HasCode(err, dErrors.CodePaused))

		_, err = s.ledger.BatchCreate(s.asAuthority(), []id.Address{bobAddr})
		s.True(dErrors.HasCode(err, dErrors.CodePaused))

		err = s.ledger.UpdateCounts(s.asAuthority(), tokenID, "Gold", 1, 1, 1)
		s.True(dErrors.HasCode(err, dErrors.CodePaused))

		err = s.ledger.SetActive(s.asAuthority(), tokenID, false)
		s.True(dErrors.HasCode(err, dErrors.CodePaused))

		err = s.ledger.UpdateRankBadge(s.asAuthority(), tokenID, "X", "y")
		s.True(dErrors.HasCode(err, dErrors.CodePaused))

		err = s.ledger.SetCustomMetadataURI(s.asAuthority(), tokenID, "ipfs://x")
		s.True(dErrors.HasCode(err, dErrors.CodePaused))
	})

	s.Run("reads stay available while paused", func() {
		p, err := s.ledger.Read(context.Background(), tokenID)
		s.NoError(err)
		s.Equal(aliceAddr, p.Owner)

		_, err = s.ledger.RenderMetadata(context.Background(), tokenID)
		s.NoError(err)
	})

	s.Run("unpause restores mutations", func() {
		s.Require().NoError(s.ledger.Unpause(s.asAuthority()))
		s.False(s.ledger.Paused())

		_, err := s.ledger.Create(s.asAuthority(), bobAddr)
		s.NoError(err)
	})

	s.Run("repeated pause is a no-op and emits nothing extra", func() {
		s.Require().NoError(s.ledger.Pause(s.asAuthority()))
		before, err := s.sink.ListRecent(context.Background(), 0)
		s.Require().NoError(err)

		s.Require().NoError(s.ledger.Pause(s.asAuthority()))
		after, err := s.sink.ListRecent(context.Background(), 0)
		s.Require().NoError(err)
		s.Len(after, len(before))
	})
}

// =============================================================================
// Metadata Tests
// =============================================================================

func decodeDocument(s *LedgerSuite, uri string) metadata.Document {
	const prefix = "data:application/json;base64,"
	s.Require().True(strings.HasPrefix(uri, prefix))

	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	s.Require().NoError(err)

	var doc metadata.Document
	s.Require().NoError(json.Unmarshal(payload, &doc))
	return doc
}

func (s *LedgerSuite) TestMetadata() {
	tokenID, err := s.ledger.Create(s.asAuthority(), aliceAddr)
	s.Require().NoError(err)

	s.Run("synthesizes an embedded document by default", func() {
		uri, err := s.ledger.RenderMetadata(context.Background(), tokenID)
		s.Require().NoError(err)

		doc := decodeDocument(s, uri)
		s.Equal("Passport #0", doc.Name)
		s.Len(doc.Attributes, 7)
	})

	s.Run("global base wins over the embedded document", func() {
		err := s.ledger.SetDefaultMetadataBase(s.asAuthority(), "https://meta.example/passports/")
		s.Require().NoError(err)

		uri, err := s.ledger.RenderMetadata(context.Background(), tokenID)
		s.Require().NoError(err)
		s.Equal("https://meta.example/passports/0", uri)
	})

	s.Run("per-record override wins over the global base", func() {
		err := s.ledger.SetCustomMetadataURI(s.asAuthority(), tokenID, "ipfs://QmCustom")
		s.Require().NoError(err)

		uri, err := s.ledger.RenderMetadata(context.Background(), tokenID)
		s.Require().NoError(err)
		s.Equal("ipfs://QmCustom", uri)
	})

	s.Run("clearing the override falls back to the global base", func() {
		err := s.ledger.SetCustomMetadataURI(s.asAuthority(), tokenID, "")
		s.Require().NoError(err)

		uri, err := s.ledger.RenderMetadata(context.Background(), tokenID)
		s.Require().NoError(err)
		s.Equal("https://meta.example/passports/0", uri)
	})

	s.Run("clearing the base falls back to the embedded document", func() {
		err := s.ledger.SetDefaultMetadataBase(s.asAuthority(), "")
		s.Require().NoError(err)

		uri, err := s.ledger.RenderMetadata(context.Background(), tokenID)
		s.Require().NoError(err)
		s.True(strings.HasPrefix(uri, "data:application/json;base64,"))
	})

	s.Run("unknown id is not found", func() {
		_, err := s.ledger.RenderMetadata(context.Background(), 999)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("override requires the authority", func() {
		err := s.ledger.SetCustomMetadataURI(s.asCaller(aliceAddr), tokenID, "ipfs://x")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// =============================================================================
// Event Emission Failure (Fail Closed)
// =============================================================================

type failingPublisher struct{}

func (failingPublisher) Emit(context.Context, events.Event) error {
	return fmt.Errorf("broker unavailable")
}

func (s *LedgerSuite) TestEmissionFailureFailsOperation() {
	ledger := New(s.store, s.renderer, authorityAddr,
		WithPublisher(failingPublisher{}),
	)

	_, err := ledger.Create(s.asAuthority(), carolAddr)
	s.Error(err)
}

// =============================================================================
// Full Member Journey
// =============================================================================

func (s *LedgerSuite) TestMemberJourney() {
	ctx := requestcontext.WithTime(s.asAuthority(), time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	tokenID, err := s.ledger.Create(ctx, aliceAddr)
	s.Require().NoError(err)
	s.Equal(id.TokenID(0), tokenID)

	s.Require().NoError(s.ledger.UpdateCounts(ctx, tokenID, "Diamond", 100000, 20, 10))
	s.Require().NoError(s.ledger.UpdateRankBadge(ctx, tokenID, "Gold Partner", "top-referrer"))
	s.Require().NoError(s.ledger.UpdateRankBadge(ctx, tokenID, "Platinum Partner", "marathon-saver"))

	p, err := s.ledger.Read(context.Background(), tokenID)
	s.Require().NoError(err)
	s.Equal(models.LevelMaster, p.EcosystemLevel)
	s.Equal("Platinum Partner", p.Rank)
	s.Equal([]string{"top-referrer", "marathon-saver"}, p.Badges)

	uri, err := s.ledger.RenderMetadata(context.Background(), tokenID)
	s.Require().NoError(err)
	doc := decodeDocument(s, uri)
	s.Require().Len(doc.Attributes, 9)

	byTrait := make(map[string]any)
	for _, attr := range doc.Attributes {
		if attr.TraitType != "Badge" {
			byTrait[attr.TraitType] = attr.Value
		}
	}
	s.Equal("Platinum Partner", byTrait["Rank"])
	s.Equal("Diamond", byTrait["Member Tier"])
	s.Equal("Master", byTrait["Ecosystem Level"])
	s.Equal(float64(100000), byTrait["SVT Earned"])
	s.Equal(float64(20), byTrait["Achievements"])
	s.Equal(float64(10), byTrait["NFTs Owned"])
	s.Equal("Active", byTrait["Active Status"])

	s.Equal("top-referrer", doc.Attributes[7].Value)
	s.Equal("marathon-saver", doc.Attributes[8].Value)
}
