package services

import (
	"fmt"
	"math"

	apperrors "github.com/profitlens/profitlens-backend/internal/pkg/errors"
	"github.com/profitlens/profitlens-backend/internal/types"
)

// Attribution model identifiers.
const (
	ModelLinear     = "linear"
	ModelTimeDecay  = "time_decay"
	ModelPosition   = "position"
	ModelAIEnhanced = "ai_enhanced"
	ModelShapley    = "shapley"
)

// RegisteredModels is every model computed for each conversion. All of them
// run on every order so model comparison views never trigger recomputation.
var RegisteredModels = []string{
	ModelLinear,
	ModelTimeDecay,
	ModelPosition,
	ModelAIEnhanced,
	ModelShapley,
}

const (
	// timeDecayRate: 30% decay per step back from the conversion.
	timeDecayRate = 0.7
	// aiDecayRate is the recency factor inside the AI-enhanced heuristic.
	aiDecayRate = 0.8
	// creditSumTolerance is the relative tolerance for the sum-of-credits
	// invariant.
	creditSumTolerance = 1e-6
)

// aiChannelWeights biases the AI-enhanced heuristic by historical channel
// performance. Unknown channels get 1.0.
var aiChannelWeights = map[string]float64{
	"organic_search": 1.2,
	"paid_search":    1.1,
	"social_paid":    1.0,
	"email":          0.9,
	"direct":         0.8,
	"referral":       0.7,
	"display":        0.6,
}

// Journey is an ordered touchpoint sequence terminating at a conversion.
// It is derived, never stored as primary truth.
type Journey struct {
	Touchpoints []*types.Touchpoint
}

// ConversionTimeHours is the span from first touch to conversion.
func (j *Journey) ConversionTimeHours() float64 {
	if len(j.Touchpoints) < 2 {
		return 0
	}
	first := j.Touchpoints[0].Timestamp
	last := j.Touchpoints[len(j.Touchpoints)-1].Timestamp
	return last.Sub(first).Hours()
}

// CalculateAttribution splits totalRevenue across the journey's channels
// under the given model. Pure: no I/O, no side effects, deterministic for the
// same inputs. Every returned map satisfies the sum-of-credits invariant.
func CalculateAttribution(journey *Journey, totalRevenue float64, modelType string) (map[string]*types.ChannelCredit, error) {
	if journey == nil || len(journey.Touchpoints) == 0 {
		return nil, apperrors.ErrEmptyJourney
	}

	var credits map[string]*types.ChannelCredit
	switch modelType {
	case ModelLinear:
		credits = calculateLinearAttribution(journey.Touchpoints, totalRevenue)
	case ModelTimeDecay:
		credits = calculateTimeDecayAttribution(journey.Touchpoints, totalRevenue)
	case ModelPosition:
		credits = calculatePositionAttribution(journey.Touchpoints, totalRevenue)
	case ModelAIEnhanced:
		credits = calculateAIEnhancedAttribution(journey.Touchpoints, totalRevenue)
	case ModelShapley:
		credits = calculateShapleyAttribution(journey.Touchpoints, totalRevenue)
	default:
		return nil, fmt.Errorf("model %q: %w", modelType, apperrors.ErrModelUnknown)
	}

	if err := verifyCreditSum(credits, totalRevenue); err != nil {
		return nil, err
	}
	return credits, nil
}

// verifyCreditSum checks the central invariant: per-channel revenue sums to
// the order total within 1e-6 relative tolerance, every credit non-negative.
func verifyCreditSum(credits map[string]*types.ChannelCredit, totalRevenue float64) error {
	var sum float64
	for channel, credit := range credits {
		if credit.Revenue < 0 {
			return fmt.Errorf("channel %q has negative credit %f: %w", channel, credit.Revenue, apperrors.ErrInvariantViolation)
		}
		sum += credit.Revenue
	}
	scale := math.Max(1, math.Abs(totalRevenue))
	if math.Abs(sum-totalRevenue) > creditSumTolerance*scale {
		return fmt.Errorf("credit sum %f != total revenue %f: %w", sum, totalRevenue, apperrors.ErrInvariantViolation)
	}
	return nil
}

func addCredit(credits map[string]*types.ChannelCredit, channel string, revenue, weight float64) {
	c, ok := credits[channel]
	if !ok {
		c = &types.ChannelCredit{}
		credits[channel] = c
	}
	c.Revenue += revenue
	c.Touchpoints++
	c.Weight += weight
}

// Linear: every touchpoint gets 1/N.
func calculateLinearAttribution(tps []*types.Touchpoint, totalRevenue float64) map[string]*types.ChannelCredit {
	credits := make(map[string]*types.ChannelCredit)
	weight := 1.0 / float64(len(tps))
	for _, tp := range tps {
		addCredit(credits, tp.Channel, totalRevenue*weight, weight)
	}
	return credits
}

// Time decay: weight decayRate^k at reverse position k, normalized.
func calculateTimeDecayAttribution(tps []*types.Touchpoint, totalRevenue float64) map[string]*types.ChannelCredit {
	n := len(tps)
	weights := make([]float64, n)
	var totalWeight float64
	for i := range tps {
		stepsFromEnd := n - 1 - i
		w := math.Pow(timeDecayRate, float64(stepsFromEnd))
		weights[i] = w
		totalWeight += w
	}

	credits := make(map[string]*types.ChannelCredit)
	for i, tp := range tps {
		w := weights[i] / totalWeight
		addCredit(credits, tp.Channel, totalRevenue*w, w)
	}
	return credits
}

// Position based: 100% for a single touch, 50/50 for two, otherwise 40%
// first, 40% last, 20% split evenly across the interior.
func calculatePositionAttribution(tps []*types.Touchpoint, totalRevenue float64) map[string]*types.ChannelCredit {
	credits := make(map[string]*types.ChannelCredit)
	n := len(tps)

	switch {
	case n == 1:
		addCredit(credits, tps[0].Channel, totalRevenue, 1.0)
	case n == 2:
		addCredit(credits, tps[0].Channel, totalRevenue*0.5, 0.5)
		addCredit(credits, tps[1].Channel, totalRevenue*0.5, 0.5)
	default:
		middleWeight := 0.2 / float64(n-2)
		for i, tp := range tps {
			var w float64
			switch i {
			case 0:
				w = 0.4
			case n - 1:
				w = 0.4
			default:
				w = middleWeight
			}
			addCredit(credits, tp.Channel, totalRevenue*w, w)
		}
	}
	return credits
}

// AI-enhanced heuristic: channel base weight x position multiplier x recency
// decay, normalized. A closed-form stand-in for a trained model.
func calculateAIEnhancedAttribution(tps []*types.Touchpoint, totalRevenue float64) map[string]*types.ChannelCredit {
	n := len(tps)
	weights := make([]float64, n)
	var totalWeight float64
	for i, tp := range tps {
		channelWeight, ok := aiChannelWeights[tp.Channel]
		if !ok {
			channelWeight = 1.0
		}
		positionMultiplier := 1.0
		if i == 0 {
			positionMultiplier = 1.3
		} else if i == n-1 {
			positionMultiplier = 1.4
		}
		decay := math.Pow(aiDecayRate, float64(n-1-i))

		w := channelWeight * positionMultiplier * decay
		weights[i] = w
		totalWeight += w
	}

	credits := make(map[string]*types.ChannelCredit)
	for i, tp := range tps {
		w := weights[i] / totalWeight
		addCredit(credits, tp.Channel, totalRevenue*w, w)
	}
	return credits
}

// Shapley approximation: per distinct channel,
// 0.4*uniqueness + 0.3*frequency + 0.3*positional value. The raw weights do
// not sum to 1 by construction, so they are re-normalized across channels
// before revenue is applied. This is a named heuristic, not a true
// cooperative-game solution.
func calculateShapleyAttribution(tps []*types.Touchpoint, totalRevenue float64) map[string]*types.ChannelCredit {
	n := len(tps)
	channelCounts := make(map[string]int)
	channelOrder := make([]string, 0)
	for _, tp := range tps {
		if _, seen := channelCounts[tp.Channel]; !seen {
			channelOrder = append(channelOrder, tp.Channel)
		}
		channelCounts[tp.Channel]++
	}

	distinct := float64(len(channelCounts))
	raw := make(map[string]float64, len(channelCounts))
	var rawSum float64
	for channel, count := range channelCounts {
		uniqueness := 1.0 / distinct
		frequency := float64(count) / float64(n)
		positional := positionalValue(tps, channel)
		v := 0.4*uniqueness + 0.3*frequency + 0.3*positional
		raw[channel] = v
		rawSum += v
	}

	credits := make(map[string]*types.ChannelCredit)
	for _, channel := range channelOrder {
		w := raw[channel] / rawSum
		credits[channel] = &types.ChannelCredit{
			Revenue:     totalRevenue * w,
			Touchpoints: channelCounts[channel],
			Weight:      w,
		}
	}
	return credits
}

// positionalValue sums position scores for a channel's touchpoints: 0.4 for
// first, 0.4 for last, interior positions share a 0.2 pool.
func positionalValue(tps []*types.Touchpoint, channel string) float64 {
	n := len(tps)
	var value float64
	for i, tp := range tps {
		if tp.Channel != channel {
			continue
		}
		switch {
		case i == 0:
			value += 0.4
		case i == n-1:
			value += 0.4
		case n > 2:
			value += 0.2 / float64(n-2)
		}
	}
	return value
}
