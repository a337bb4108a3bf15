package economy

import (
	"sync"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

//go:generate mockgen -destination=mocks/bridge.go -package=mocks github.com/mdouchement/chestlink/internal/economy Bridge

// A Bridge is the economy provider used to pay upgrades.
type Bridge interface {
	// Has returns true if the actor owns at least amount.
	Has(actor uuid.UUID, amount float64) bool
	// Withdraw takes amount from the actor's balance. It returns false when nothing was withdrawn.
	Withdraw(actor uuid.UUID, amount float64) bool
	// Balance returns the actor's balance.
	Balance(actor uuid.UUID) float64
}

// ErrNegativeAmount is returned when a deposit is not positive.
var ErrNegativeAmount = errors.New("amount must be positive")

// A Ledger is an in-memory Bridge. Unknown actors start with the opening balance.
type Ledger struct {
	mu       sync.Mutex
	opening  float64
	balances map[uuid.UUID]float64
}

// NewLedger returns a Ledger crediting opening to every new actor.
func NewLedger(opening float64) *Ledger {
	return &Ledger{
		opening:  opening,
		balances: map[uuid.UUID]float64{},
	}
}

func (l *Ledger) balance(actor uuid.UUID) float64 {
	b, ok := l.balances[actor]
	if !ok {
		return l.opening
	}
	return b
}

// Has implements Bridge.
func (l *Ledger) Has(actor uuid.UUID, amount float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balance(actor) >= amount
}

// Withdraw implements Bridge.
func (l *Ledger) Withdraw(actor uuid.UUID, amount float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.balance(actor)
	if amount < 0 || b < amount {
		return false
	}
	l.balances[actor] = b - amount
	return true
}

// Balance implements Bridge.
func (l *Ledger) Balance(actor uuid.UUID) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balance(actor)
}

// Deposit credits amount to the actor.
func (l *Ledger) Deposit(actor uuid.UUID, amount float64) error {
	if amount <= 0 {
		return ErrNegativeAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[actor] = l.balance(actor) + amount
	return nil
}
