package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/ignatzorin/vix-backend/internal/domain/entity"
	"github.com/ignatzorin/vix-backend/internal/domain/repository"
	"github.com/ignatzorin/vix-backend/internal/domain/valueobject"
	"github.com/ignatzorin/vix-backend/internal/pkg/apperror"
)

type ServiceOrderRepository struct {
	s *Store
}

func (r *ServiceOrderRepository) Create(ctx context.Context, order *entity.ServiceOrder) error {
	return r.s.read(ctx, func(d *state) error {
		if err := r.s.fault("service_orders.create"); err != nil {
			return err
		}
		if _, ok := d.serviceOrders[order.ID]; ok {
			return apperror.ErrConcurrencyConflict
		}
		d.serviceOrders[order.ID] = *order.Clone()
		return nil
	})
}

func (r *ServiceOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ServiceOrder, error) {
	var out *entity.ServiceOrder
	err := r.s.read(ctx, func(d *state) error {
		o, ok := d.serviceOrders[id]
		if !ok {
			return apperror.ErrOrderNotFound
		}
		out = o.Clone()
		return nil
	})
	return out, err
}

func (r *ServiceOrderRepository) UpdateStatus(ctx context.Context, order *entity.ServiceOrder, expectedStatus valueobject.ServiceOrderStatus, expectedVersion int64) error {
	return r.s.read(ctx, func(d *state) error {
		if err := r.s.fault("service_orders.update"); err != nil {
			return err
		}
		current, ok := d.serviceOrders[order.ID]
		if !ok {
			return apperror.ErrOrderNotFound
		}
		if current.Status != expectedStatus || current.Version != expectedVersion {
			return apperror.ErrConcurrencyConflict
		}
		d.serviceOrders[order.ID] = *order.Clone()
		return nil
	})
}

func (r *ServiceOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]*entity.ServiceOrder, error) {
	filter = filter.Normalize()
	var out []*entity.ServiceOrder
	err := r.s.read(ctx, func(d *state) error {
		all := make([]entity.ServiceOrder, 0)
		for _, o := range d.serviceOrders {
			if matchParty(filter, o.BuyerID, o.SellerID) {
				all = append(all, o)
			}
		}
		sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
		for i := filter.Offset; i < len(all) && len(out) < filter.Limit; i++ {
			out = append(out, all[i].Clone())
		}
		return nil
	})
	return out, err
}

func (r *ServiceOrderRepository) SumEscrowed(ctx context.Context) (int64, error) {
	var sum int64
	err := r.s.read(ctx, func(d *state) error {
		for _, o := range d.serviceOrders {
			if o.Status.HoldsEscrow() {
				sum += o.VPAmount
			}
		}
		return nil
	})
	return sum, err
}

type PackOrderRepository struct {
	s *Store
}

func (r *PackOrderRepository) Create(ctx context.Context, order *entity.PackOrder) error {
	return r.s.read(ctx, func(d *state) error {
		if err := r.s.fault("pack_orders.create"); err != nil {
			return err
		}
		if _, ok := d.packOrders[order.ID]; ok {
			return apperror.ErrConcurrencyConflict
		}
		d.packOrders[order.ID] = *order
		return nil
	})
}

func (r *PackOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.PackOrder, error) {
	var out *entity.PackOrder
	err := r.s.read(ctx, func(d *state) error {
		o, ok := d.packOrders[id]
		if !ok {
			return apperror.ErrOrderNotFound
		}
		out = &o
		return nil
	})
	return out, err
}

func (r *PackOrderRepository) UpdateStatus(ctx context.Context, order *entity.PackOrder, expectedStatus valueobject.PackOrderStatus, expectedVersion int64) error {
	return r.s.read(ctx, func(d *state) error {
		if err := r.s.fault("pack_orders.update"); err != nil {
			return err
		}
		current, ok := d.packOrders[order.ID]
		if !ok {
			return apperror.ErrOrderNotFound
		}
		if current.Status != expectedStatus || current.Version != expectedVersion {
			return apperror.ErrConcurrencyConflict
		}
		d.packOrders[order.ID] = *order
		return nil
	})
}

func (r *PackOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]*entity.PackOrder, error) {
	filter = filter.Normalize()
	var out []*entity.PackOrder
	err := r.s.read(ctx, func(d *state) error {
		all := make([]entity.PackOrder, 0)
		for _, o := range d.packOrders {
			if matchParty(filter, o.BuyerID, o.SellerID) {
				all = append(all, o)
			}
		}
		sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
		for i := filter.Offset; i < len(all) && len(out) < filter.Limit; i++ {
			o := all[i]
			out = append(out, &o)
		}
		return nil
	})
	return out, err
}

type TipRepository struct {
	s *Store
}

func (r *TipRepository) Create(ctx context.Context, tip *entity.Tip) error {
	return r.s.read(ctx, func(d *state) error {
		if err := r.s.fault("tips.create"); err != nil {
			return err
		}
		if _, ok := d.tips[tip.ID]; ok {
			return apperror.ErrConcurrencyConflict
		}
		d.tips[tip.ID] = *tip
		return nil
	})
}

func (r *TipRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Tip, error) {
	var out *entity.Tip
	err := r.s.read(ctx, func(d *state) error {
		t, ok := d.tips[id]
		if !ok {
			return apperror.New(apperror.ErrCodeNotFound, "чаевые не найдены")
		}
		out = &t
		return nil
	})
	return out, err
}

func (r *TipRepository) ListByPost(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*entity.Tip, error) {
	var out []*entity.Tip
	err := r.s.read(ctx, func(d *state) error {
		all := make([]entity.Tip, 0)
		for _, t := range d.tips {
			if t.PostID == postID {
				all = append(all, t)
			}
		}
		sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
		for i := offset; i < len(all) && len(out) < limit; i++ {
			t := all[i]
			out = append(out, &t)
		}
		return nil
	})
	return out, err
}

func matchParty(f repository.OrderFilter, buyer, seller uuid.UUID) bool {
	switch {
	case f.AsBuyer && !f.AsSeller:
		return buyer == f.UserID
	case f.AsSeller && !f.AsBuyer:
		return seller == f.UserID
	default:
		return buyer == f.UserID || seller == f.UserID
	}
}
