package services

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	apperrors "github.com/profitlens/profitlens-backend/internal/pkg/errors"
	"github.com/profitlens/profitlens-backend/internal/types"
)

func journeyOf(channels ...string) *Journey {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tps := make([]*types.Touchpoint, 0, len(channels))
	for i, ch := range channels {
		tps = append(tps, &types.Touchpoint{
			Channel:   ch,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		})
	}
	return &Journey{Touchpoints: tps}
}

func creditSum(credits map[string]*types.ChannelCredit) float64 {
	var sum float64
	for _, c := range credits {
		sum += c.Revenue
	}
	return sum
}

func TestCreditSumInvariantAllModels(t *testing.T) {
	journeys := map[string]*Journey{
		"single":      journeyOf("email"),
		"pair":        journeyOf("organic_search", "direct"),
		"mixed":       journeyOf("paid_search", "email", "paid_search", "direct"),
		"long":        journeyOf("display", "social_paid", "referral", "email", "organic_search", "direct"),
		"unknown_ch":  journeyOf("tiktok_organic", "direct"),
		"same_repeat": journeyOf("email", "email", "email"),
	}
	revenues := []float64{0.01, 19.99, 149.50, 100000}

	for _, model := range RegisteredModels {
		for name, journey := range journeys {
			for _, revenue := range revenues {
				credits, err := CalculateAttribution(journey, revenue, model)
				if err != nil {
					t.Fatalf("%s/%s rev=%v: %v", model, name, revenue, err)
				}
				sum := creditSum(credits)
				tolerance := 1e-6 * math.Max(1, revenue)
				if math.Abs(sum-revenue) > tolerance {
					t.Fatalf("%s/%s: credit sum %v != revenue %v", model, name, sum, revenue)
				}
				for ch, c := range credits {
					if c.Revenue < 0 {
						t.Fatalf("%s/%s: channel %s has negative credit %v", model, name, ch, c.Revenue)
					}
				}
			}
		}
	}
}

func TestSingleTouchpointGetsFullCredit(t *testing.T) {
	journey := journeyOf("referral")
	for _, model := range RegisteredModels {
		credits, err := CalculateAttribution(journey, 250.0, model)
		if err != nil {
			t.Fatalf("%s: %v", model, err)
		}
		if len(credits) != 1 {
			t.Fatalf("%s: expected 1 channel, got %d", model, len(credits))
		}
		c := credits["referral"]
		if c == nil || math.Abs(c.Revenue-250.0) > 1e-9 {
			t.Fatalf("%s: referral credit = %+v, want 250", model, c)
		}
	}
}

func TestPositionAttributionThreeTouch(t *testing.T) {
	credits, err := CalculateAttribution(journeyOf("a", "b", "c"), 100.0, ModelPosition)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		channel string
		want    float64
	}{
		{"a", 40},
		{"b", 20},
		{"c", 40},
	}
	for _, tc := range cases {
		c := credits[tc.channel]
		if c == nil || math.Abs(c.Revenue-tc.want) > 1e-9 {
			t.Fatalf("channel %s credit = %+v, want %v", tc.channel, c, tc.want)
		}
	}
}

func TestPositionAttributionEdgeSizes(t *testing.T) {
	credits, err := CalculateAttribution(journeyOf("a", "b"), 100.0, ModelPosition)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(credits["a"].Revenue-50) > 1e-9 || math.Abs(credits["b"].Revenue-50) > 1e-9 {
		t.Fatalf("two-touch split = %v/%v, want 50/50", credits["a"].Revenue, credits["b"].Revenue)
	}
}

func TestLinearAttributionAggregatesRepeatChannels(t *testing.T) {
	credits, err := CalculateAttribution(journeyOf("x", "x", "y", "z"), 100.0, ModelLinear)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		channel     string
		wantRevenue float64
		wantTouches int
	}{
		{"x", 50, 2},
		{"y", 25, 1},
		{"z", 25, 1},
	}
	for _, tc := range cases {
		c := credits[tc.channel]
		if c == nil {
			t.Fatalf("channel %s missing", tc.channel)
		}
		if math.Abs(c.Revenue-tc.wantRevenue) > 1e-9 {
			t.Fatalf("channel %s revenue = %v, want %v", tc.channel, c.Revenue, tc.wantRevenue)
		}
		if c.Touchpoints != tc.wantTouches {
			t.Fatalf("channel %s touchpoints = %d, want %d", tc.channel, c.Touchpoints, tc.wantTouches)
		}
	}
}

func TestTimeDecayFavorsRecentTouches(t *testing.T) {
	credits, err := CalculateAttribution(journeyOf("first", "middle", "last"), 100.0, ModelTimeDecay)
	if err != nil {
		t.Fatal(err)
	}
	if !(credits["last"].Revenue > credits["middle"].Revenue && credits["middle"].Revenue > credits["first"].Revenue) {
		t.Fatalf("expected strictly increasing credit toward conversion: %v / %v / %v",
			credits["first"].Revenue, credits["middle"].Revenue, credits["last"].Revenue)
	}
	// 0.7^2 : 0.7 : 1 normalized
	wantFirst := 100.0 * 0.49 / (0.49 + 0.7 + 1)
	if math.Abs(credits["first"].Revenue-wantFirst) > 1e-9 {
		t.Fatalf("first credit = %v, want %v", credits["first"].Revenue, wantFirst)
	}
}

func TestAIEnhancedPrefersWeightedChannels(t *testing.T) {
	// Same positions, only the channel differs; organic_search (1.2) must out-earn
	// display (0.6) when both sit in the interior.
	credits, err := CalculateAttribution(journeyOf("email", "organic_search", "display", "direct"), 100.0, ModelAIEnhanced)
	if err != nil {
		t.Fatal(err)
	}
	organic := credits["organic_search"].Revenue
	display := credits["display"].Revenue
	if organic <= display {
		t.Fatalf("organic_search %v should out-earn display %v at equal recency disadvantage", organic, display)
	}
}

func TestShapleyWeightsSumToOne(t *testing.T) {
	credits, err := CalculateAttribution(journeyOf("a", "b", "a", "c"), 100.0, ModelShapley)
	if err != nil {
		t.Fatal(err)
	}
	var weightSum float64
	for _, c := range credits {
		weightSum += c.Weight
	}
	if math.Abs(weightSum-1) > 1e-9 {
		t.Fatalf("normalized shapley weights sum to %v, want 1", weightSum)
	}
}

func TestUnknownModelRejected(t *testing.T) {
	_, err := CalculateAttribution(journeyOf("a"), 100.0, "last_click")
	if !errors.Is(err, apperrors.ErrModelUnknown) {
		t.Fatalf("expected ErrModelUnknown, got %v", err)
	}
}

func TestEmptyJourneyRejected(t *testing.T) {
	_, err := CalculateAttribution(&Journey{}, 100.0, ModelLinear)
	if !errors.Is(err, apperrors.ErrEmptyJourney) {
		t.Fatalf("expected ErrEmptyJourney, got %v", err)
	}
}

func TestRecomputeIsDeterministic(t *testing.T) {
	journey := journeyOf("paid_search", "email", "social_paid", "direct")
	for _, model := range RegisteredModels {
		first, err := CalculateAttribution(journey, 423.17, model)
		if err != nil {
			t.Fatalf("%s: %v", model, err)
		}
		second, err := CalculateAttribution(journey, 423.17, model)
		if err != nil {
			t.Fatalf("%s: %v", model, err)
		}
		a, _ := json.Marshal(first)
		b, _ := json.Marshal(second)
		if string(a) != string(b) {
			t.Fatalf("%s: recompute produced different bytes:\n%s\n%s", model, a, b)
		}
	}
}

func TestConversionTimeHours(t *testing.T) {
	journey := journeyOf("a", "b", "c")
	if got := journey.ConversionTimeHours(); math.Abs(got-2) > 1e-9 {
		t.Fatalf("ConversionTimeHours = %v, want 2", got)
	}
	if got := journeyOf("a").ConversionTimeHours(); got != 0 {
		t.Fatalf("single touchpoint ConversionTimeHours = %v, want 0", got)
	}
}
