package policy

import (
	"context"
	"fmt"
	"math/bits"

	"ticket-ledger/internal/models"
)

// MaxFeePercent bounds the platform fee.
const MaxFeePercent = 100

// DBLayer persists the policy singleton. GetPolicy returns nil, nil when the
// row has not been seeded yet.
type DBLayer interface {
	GetPolicy(ctx context.Context) (*models.Policy, error)
	SavePolicy(ctx context.Context, p models.Policy) error
}

type Service struct {
	DB    DBLayer
	Admin string
}

func NewService(db DBLayer, admin string) *Service {
	return &Service{DB: db, Admin: admin}
}

// Seed writes the initial policy if none exists and returns the stored one.
func (s *Service) Seed(ctx context.Context, initial models.Policy) (*models.Policy, error) {
	current, err := s.DB.GetPolicy(ctx)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	if current != nil {
		return current, nil
	}
	if initial.PlatformFeePercent > MaxFeePercent {
		return nil, models.ErrInvalidFee
	}
	initial.ID = models.PolicyRowID
	if err := s.DB.SavePolicy(ctx, initial); err != nil {
		return nil, fmt.Errorf("seed policy: %w", err)
	}
	return &initial, nil
}

func (s *Service) load(ctx context.Context) (*models.Policy, error) {
	p, err := s.DB.GetPolicy(ctx)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("policy has not been seeded")
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context) (*models.PolicyView, error) {
	p, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return &models.PolicyView{
		Admin:              s.Admin,
		PlatformFeePercent: p.PlatformFeePercent,
		MinTicketPrice:     p.MinTicketPrice,
	}, nil
}

func (s *Service) MinTicketPrice(ctx context.Context) (uint64, error) {
	p, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return p.MinTicketPrice, nil
}

func (s *Service) PlatformFeePercent(ctx context.Context) (uint64, error) {
	p, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return p.PlatformFeePercent, nil
}

func (s *Service) UpdatePlatformFee(ctx context.Context, call models.Call, fee uint64) error {
	if call.Caller != s.Admin {
		return models.ErrNotAuthorized
	}
	if fee > MaxFeePercent {
		return models.ErrInvalidFee
	}
	p, err := s.load(ctx)
	if err != nil {
		return err
	}
	p.PlatformFeePercent = fee
	if err := s.DB.SavePolicy(ctx, *p); err != nil {
		return fmt.Errorf("save policy: %w", err)
	}
	return nil
}

func (s *Service) UpdateMinTicketPrice(ctx context.Context, call models.Call, price uint64) error {
	if call.Caller != s.Admin {
		return models.ErrNotAuthorized
	}
	p, err := s.load(ctx)
	if err != nil {
		return err
	}
	p.MinTicketPrice = price
	if err := s.DB.SavePolicy(ctx, *p); err != nil {
		return fmt.Errorf("save policy: %w", err)
	}
	return nil
}

func (s *Service) CalculatePlatformFee(ctx context.Context, amount uint64) (uint64, error) {
	fee, err := s.PlatformFeePercent(ctx)
	if err != nil {
		return 0, err
	}
	return FeeOf(amount, fee), nil
}

// FeeOf returns floor(amount * percent / 100) using a 128-bit intermediate.
// percent must not exceed MaxFeePercent.
func FeeOf(amount, percent uint64) uint64 {
	hi, lo := bits.Mul64(amount, percent)
	q, _ := bits.Div64(hi, lo, 100)
	return q
}
