package session

import (
	"fmt"

	"github.com/dealbook/forecast/pkg/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Action is one user edit. Actions never modify the session they are given.
type Action interface {
	apply(s Session) (Session, error)
}

// Edit applies a to s and returns the resulting session. On error the
// original session is returned unchanged.
func Edit(s Session, a Action) (Session, error) {
	next, err := a.apply(s)
	if err != nil {
		return s, err
	}
	return next, nil
}

type AddDeal struct {
	Deal models.Deal
}

func (a AddDeal) apply(s Session) (Session, error) {
	d := cloneDeal(a.Deal)
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if _, err := s.indexOf(d.ID); err == nil {
		return s, fmt.Errorf("deal %s already in session", d.ID)
	}
	deals := make([]models.Deal, len(s.deals), len(s.deals)+1)
	copy(deals, s.deals)
	return s.withDeals(append(deals, d)), nil
}

type RemoveDeal struct {
	DealID uuid.UUID
}

func (a RemoveDeal) apply(s Session) (Session, error) {
	i, err := s.indexOf(a.DealID)
	if err != nil {
		return s, err
	}
	deals := make([]models.Deal, 0, len(s.deals)-1)
	deals = append(deals, s.deals[:i]...)
	deals = append(deals, s.deals[i+1:]...)
	return s.withDeals(deals), nil
}

// SetField stores a raw field value as typed; parsing happens on read.
type SetField struct {
	DealID uuid.UUID
	Field  string
	Value  any
}

func (a SetField) apply(s Session) (Session, error) {
	return s.updateDeal(a.DealID, func(d *models.Deal) {
		if a.Value == nil {
			delete(d.FieldValues, a.Field)
			return
		}
		d.FieldValues[a.Field] = a.Value
	})
}

type RenameDeal struct {
	DealID uuid.UUID
	Name   string
}

func (a RenameDeal) apply(s Session) (Session, error) {
	return s.updateDeal(a.DealID, func(d *models.Deal) {
		d.DealName = a.Name
	})
}

type SetCostItem struct {
	DealID uuid.UUID
	CostID string
	Item   models.CostItem
}

func (a SetCostItem) apply(s Session) (Session, error) {
	return s.updateDeal(a.DealID, func(d *models.Deal) {
		d.CostItems[a.CostID] = a.Item
	})
}

type RemoveCostItem struct {
	DealID uuid.UUID
	CostID string
}

func (a RemoveCostItem) apply(s Session) (Session, error) {
	return s.updateDeal(a.DealID, func(d *models.Deal) {
		delete(d.CostItems, a.CostID)
	})
}

// SetCertainty clamps the percentage to 0..100.
type SetCertainty struct {
	DealID     uuid.UUID
	Percentage decimal.Decimal
}

func (a SetCertainty) apply(s Session) (Session, error) {
	pct := decimal.Max(decimal.Zero, decimal.Min(decimal.NewFromInt(100), a.Percentage))
	return s.updateDeal(a.DealID, func(d *models.Deal) {
		d.CertaintyPercentage = pct
	})
}

type SetComments struct {
	Line models.ProductLine
	Text string
}

func (a SetComments) apply(s Session) (Session, error) {
	next := s.withDeals(s.deals)
	next.comments[a.Line] = a.Text
	return next, nil
}

// SetHistory attaches externally supplied actuals to a product line.
type SetHistory struct {
	Line    models.ProductLine
	History models.History
}

func (a SetHistory) apply(s Session) (Session, error) {
	next := s.withDeals(s.deals)
	next.history[a.Line] = models.History{
		PriorYear:      a.History.PriorYear.Clone(),
		CurrentYearYTD: a.History.CurrentYearYTD.Clone(),
	}
	return next, nil
}

// updateDeal copies the deal list, applies fn to a copy of one deal and
// returns a session holding the new list.
func (s Session) updateDeal(id uuid.UUID, fn func(*models.Deal)) (Session, error) {
	i, err := s.indexOf(id)
	if err != nil {
		return s, err
	}
	deals := make([]models.Deal, len(s.deals))
	copy(deals, s.deals)
	d := cloneDeal(deals[i])
	fn(&d)
	deals[i] = d
	return s.withDeals(deals), nil
}
