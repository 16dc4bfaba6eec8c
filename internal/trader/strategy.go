package trader

import (
	"fmt"

	"hot-swap-bot-go/internal/models"
)

// mixedState is the position of a mixed-strategy wallet in its buy/sell alternation.
type mixedState int

const (
	awaitingBuy mixedState = iota
	awaitingSell
)

// stateAfter derives the alternation state from the last recorded action.
// A wallet that never traded, or last sold, is waiting to buy.
func stateAfter(last models.Action) mixedState {
	if last == models.ActionBuy {
		return awaitingSell
	}
	return awaitingBuy
}

func (s mixedState) action() models.Action {
	if s == awaitingSell {
		return models.ActionSell
	}
	return models.ActionBuy
}

// NextAction picks the side of the next cycle for a wallet.
func NextAction(strategy models.Strategy, last models.Action) (models.Action, error) {
	switch strategy {
	case models.StrategyBuy:
		return models.ActionBuy, nil
	case models.StrategySell:
		return models.ActionSell, nil
	case models.StrategyMixed:
		return stateAfter(last).action(), nil
	default:
		return models.ActionNone, models.NewValidationError(fmt.Sprintf("Unknown strategy: %s", strategy))
	}
}
