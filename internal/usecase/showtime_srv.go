package usecase

import (
	"context"
	"fmt"
	"time"

	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/dto/request"
	"showtime-booking/internal/dto/response"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultSeatsPerRow = 10

var defaultSeatPrice = decimal.RequireFromString("10.00")

type ShowtimeService interface {
	// ProvisionShowtime creates a showtime together with exactly Capacity
	// seat rows, all free.
	ProvisionShowtime(ctx context.Context, req *request.ProvisionShowtimeRequest) (*response.SeatMapResponse, error)
	GetSeatMap(ctx context.Context, showtimeID string) (*response.SeatMapResponse, error)
}

type showtimeService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewShowtimeService(repo *repository.Repository, log *zap.Logger) ShowtimeService {
	return &showtimeService{
		repo: repo,
		log:  log.With(zap.String("service", "showtime")),
	}
}

func (s *showtimeService) ProvisionShowtime(ctx context.Context, req *request.ProvisionShowtimeRequest) (*response.SeatMapResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	price := req.Price
	if price.IsZero() {
		price = defaultSeatPrice
	}
	if !price.IsPositive() {
		return nil, &ValidationError{Fields: map[string]string{"price": "Must be greater than 0"}}
	}

	rows := req.Rows
	if len(rows) == 0 {
		rows = defaultLayout(req.Capacity)
	}
	if err := checkLayout(rows, req.Capacity); err != nil {
		return nil, err
	}

	now := time.Now()
	showtime := &entity.Showtime{
		BaseNoDelete: entity.NewBaseNoDelete(now),
		MovieID:      uuid.MustParse(req.MovieID),
		AuditoriumID: uuid.MustParse(req.AuditoriumID),
		StartTime:    req.StartTime.UTC(),
		EndTime:      req.EndTime.UTC(),
		TotalSeats:   req.Capacity,
		Available:    req.Capacity,
	}

	seats := make([]*entity.Seat, 0, req.Capacity)
	for _, row := range rows {
		rowPrice := price
		if row.Price != nil {
			rowPrice = *row.Price
		}
		for n := 1; n <= row.Seats; n++ {
			seats = append(seats, &entity.Seat{
				BaseNoDelete: entity.NewBaseNoDelete(now),
				ShowtimeID:   showtime.ID,
				Label:        fmt.Sprintf("%s%d", row.Label, n),
				Price:        rowPrice,
			})
		}
	}

	err := s.repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Showtime.Create(ctx, showtime); err != nil {
			return err
		}
		return s.repo.Seat.CreateBatch(ctx, seats)
	})
	if err != nil {
		s.log.Error("Failed to provision showtime", zap.Error(err))
		return nil, fmt.Errorf("provision showtime: %w", err)
	}

	s.log.Info("Showtime provisioned",
		zap.String("showtime_id", showtime.ID.String()),
		zap.Int("capacity", showtime.TotalSeats),
		zap.Time("start_time", showtime.StartTime),
	)

	return &response.SeatMapResponse{
		ShowtimeResponse: response.ShowtimeToResponse(showtime),
		Seats:            response.SeatsToResponse(seats),
	}, nil
}

func (s *showtimeService) GetSeatMap(ctx context.Context, showtimeID string) (*response.SeatMapResponse, error) {
	id, err := parseID(showtimeID, "showtime_id")
	if err != nil {
		return nil, err
	}

	showtime, err := s.repo.Showtime.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to get showtime", zap.Error(err), zap.String("showtime_id", showtimeID))
		return nil, fmt.Errorf("get showtime: %w", err)
	}
	if showtime == nil {
		return nil, ErrShowtimeNotFound
	}

	seats, err := s.repo.Seat.FindByShowtime(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get seats: %w", err)
	}

	return &response.SeatMapResponse{
		ShowtimeResponse: response.ShowtimeToResponse(showtime),
		Seats:            response.SeatsToResponse(seats),
	}, nil
}

// defaultLayout fills rows A, B, ... with ten seats each; the last row takes
// the remainder.
func defaultLayout(capacity int) []request.SeatRow {
	var rows []request.SeatRow
	for i := 0; capacity > 0; i++ {
		n := min(capacity, defaultSeatsPerRow)
		rows = append(rows, request.SeatRow{Label: rowLabel(i), Seats: n})
		capacity -= n
	}
	return rows
}

// rowLabel maps 0 -> A, 25 -> Z, 26 -> AA.
func rowLabel(i int) string {
	label := ""
	for i >= 0 {
		label = string(rune('A'+i%26)) + label
		i = i/26 - 1
	}
	return label
}

func checkLayout(rows []request.SeatRow, capacity int) error {
	total := 0
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.Label]; dup {
			return &ValidationError{Fields: map[string]string{"rows": fmt.Sprintf("Row %s is listed twice", row.Label)}}
		}
		seen[row.Label] = struct{}{}
		if row.Price != nil && !row.Price.IsPositive() {
			return &ValidationError{Fields: map[string]string{"rows": fmt.Sprintf("Row %s price must be greater than 0", row.Label)}}
		}
		total += row.Seats
	}
	if total != capacity {
		return &ValidationError{Fields: map[string]string{"rows": fmt.Sprintf("Rows hold %d seats but capacity is %d", total, capacity)}}
	}
	return nil
}
