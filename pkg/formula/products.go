package formula

import (
	"time"

	"github.com/dealbook/forecast/pkg/models"
	"github.com/shopspring/decimal"
)

// Field ids shared by the product schemas.
const (
	FieldCommissionPercentage = "commissionPercentage"
	FieldFrequency            = "frequency"
	FieldPaymentFrequency     = "paymentFrequency"
	FieldPaymentMonths        = "paymentMonths"
	FieldPaymentStartDate     = "paymentStartDate"
	FieldStartDate            = "startDate"
	FieldEndDate              = "endDate"
	FieldGPDistribution       = "gpDistribution"

	FieldLearnerCount   = "learnerCount"
	FieldCostPerLearner = "costPerLearner"

	FieldNumberOfTrainees = "numberOfTrainees"
	FieldPricePerPerson   = "pricePerPerson"
	FieldTrainingDate     = "trainingDate"

	FieldNumberOfEmployees       = "numberOfEmployees"
	FieldCostPerEmployeePerMonth = "costPerEmployeePerMonth"
	FieldPaymentType             = "paymentType"
	FieldContractMonths          = "contractMonths"
)

const paymentTypeAnnual = "Annual"

var twelve = decimal.NewFromInt(12)

func init() {
	Register(models.ProductLearnership, learnership{})
	Register(models.ProductCompliance, course{costs: []string{"travel", "manuals", "accommodation", "accreditation"}})
	Register(models.ProductOtherCourses, course{costs: []string{"travel", "manuals", "accommodation", "accreditation"}})
	Register(models.ProductTapBusiness, tapBusiness{})
}

// learnership: learners x cost per learner, paid on the deal's payment schedule.
type learnership struct{}

func (learnership) Income(f models.FieldValues) decimal.Decimal {
	return f.Decimal(FieldLearnerCount).Mul(f.Decimal(FieldCostPerLearner))
}

func (learnership) CostIDs() []string {
	return []string{"facilitator", "travel", "assessor", "moderator", "other"}
}

func (learnership) Schedule(f models.FieldValues) models.PaymentSchedule {
	s := models.PaymentSchedule{
		Frequency:      frequency(f, FieldFrequency, FieldPaymentFrequency),
		Start:          firstDate(f, FieldPaymentStartDate, FieldStartDate),
		End:            firstDate(f, FieldEndDate),
		DurationMonths: atLeastOne(f.Int(FieldPaymentMonths)),
	}
	return withEnd(s)
}

// course covers Compliance and Other Courses: trainees x price per person,
// anchored on the training date.
type course struct {
	costs []string
}

func (course) Income(f models.FieldValues) decimal.Decimal {
	return f.Decimal(FieldNumberOfTrainees).Mul(f.Decimal(FieldPricePerPerson))
}

func (c course) CostIDs() []string {
	return c.costs
}

func (course) Schedule(f models.FieldValues) models.PaymentSchedule {
	s := models.PaymentSchedule{
		Frequency:      frequency(f, FieldPaymentFrequency, FieldFrequency),
		Start:          firstDate(f, FieldTrainingDate, FieldPaymentStartDate),
		End:            firstDate(f, FieldEndDate, FieldTrainingDate),
		DurationMonths: atLeastOne(f.Int(FieldPaymentMonths)),
	}
	if s.Frequency == "" {
		s.Frequency = models.FrequencyOnceOff
	}
	return withEnd(s)
}

// tapBusiness: employees x monthly rate, either a 12-month annual lump or
// monthly over the contract term.
type tapBusiness struct{}

func (tapBusiness) annual(f models.FieldValues) bool {
	pt, ok := models.ParseFrequency(f.Text(FieldPaymentType))
	return ok && pt == models.FrequencyAnnual
}

func (t tapBusiness) Income(f models.FieldValues) decimal.Decimal {
	perMonth := f.Decimal(FieldNumberOfEmployees).Mul(f.Decimal(FieldCostPerEmployeePerMonth))
	if t.annual(f) {
		return perMonth.Mul(twelve)
	}
	return perMonth.Mul(decimal.NewFromInt(int64(atLeastOne(f.Int(FieldContractMonths)))))
}

func (tapBusiness) CostIDs() []string {
	return nil
}

func (t tapBusiness) Schedule(f models.FieldValues) models.PaymentSchedule {
	s := models.PaymentSchedule{
		Frequency:      models.FrequencyMonthly,
		Start:          firstDate(f, FieldPaymentStartDate, FieldStartDate),
		End:            firstDate(f, FieldEndDate),
		DurationMonths: atLeastOne(f.Int(FieldContractMonths)),
	}
	if t.annual(f) {
		s.Frequency = models.FrequencyAnnual
		if f.Int(FieldContractMonths) <= 0 {
			s.DurationMonths = 12
		}
	}
	return withEnd(s)
}

func frequency(f models.FieldValues, keys ...string) models.Frequency {
	for _, k := range keys {
		if freq, ok := models.ParseFrequency(f.Text(k)); ok {
			return freq
		}
	}
	return ""
}

func firstDate(f models.FieldValues, keys ...string) time.Time {
	for _, k := range keys {
		if t, ok := f.Date(k); ok {
			return t
		}
	}
	return time.Time{}
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// withEnd derives a missing end date from the start and duration.
func withEnd(s models.PaymentSchedule) models.PaymentSchedule {
	if s.End.IsZero() && !s.Start.IsZero() {
		s.End = time.Date(s.Start.Year(), s.Start.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, s.DurationMonths-1, 0)
	}
	return s
}
