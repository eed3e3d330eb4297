package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/intervu-dev/intervu-go-api/internal/dto"
	"github.com/intervu-dev/intervu-go-api/internal/repository"
)

// ErrNoScores indicates the session has no scored turns to report on.
var ErrNoScores = errors.New("no scores found for this session")

// reportDimensions fixes the tie-break precedence for strongest/weakest.
var reportDimensions = []string{"content", "structure", "communication"}

// ReportService produces the final interview summary report.
type ReportService interface {
	Get(ctx context.Context, sessionID uuid.UUID) (dto.FinalReportResponse, error)
}

type reportService struct {
	repo     repository.InterviewRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewReportService builds the report aggregator. cache may be nil when redis
// is not configured.
func NewReportService(repo repository.InterviewRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ReportService {
	return &reportService{
		repo:     repo,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "report_service").Logger(),
	}
}

func (s *reportService) Get(ctx context.Context, sessionID uuid.UUID) (dto.FinalReportResponse, error) {
	cacheKey := fmt.Sprintf("report:session:%s", sessionID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.FinalReportResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Str("session_id", sessionID.String()).Msg("report cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read report cache")
		}
	}

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return dto.FinalReportResponse{}, ErrSessionNotFound
		}
		return dto.FinalReportResponse{}, err
	}

	scores, err := s.repo.ListScores(ctx, sessionID)
	if err != nil {
		return dto.FinalReportResponse{}, err
	}
	if len(scores) == 0 {
		return dto.FinalReportResponse{}, ErrNoScores
	}

	var contentSum, structureSum, commsSum int
	for _, score := range scores {
		contentSum += score.Content
		structureSum += score.Structure
		commsSum += score.Comms
	}

	count := float64(len(scores))
	metrics := dto.ReportMetrics{
		AvgContent:       round1(float64(contentSum) / count),
		AvgStructure:     round1(float64(structureSum) / count),
		AvgCommunication: round1(float64(commsSum) / count),
	}
	metrics.OverallAvg = round1((metrics.AvgContent + metrics.AvgStructure + metrics.AvgCommunication) / 3)

	strongest, weakest := rankDimensions(metrics)

	response := dto.FinalReportResponse{
		SessionID:   sessionID,
		RoleProfile: session.RoleProfile,
		Metrics:     metrics,
		FinalSummary: fmt.Sprintf(
			"You completed an interview for the %s role with an overall average of %.1f/100. Your strongest area was %s, while %s has the most room for improvement.",
			session.RoleProfile, metrics.OverallAvg, strongest, weakest,
		),
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store report cache")
			}
		}
	}

	return response, nil
}

// rankDimensions picks the strongest and weakest dimension; ties go to the
// earlier dimension in the fixed precedence order.
func rankDimensions(metrics dto.ReportMetrics) (strongest, weakest string) {
	values := []float64{metrics.AvgContent, metrics.AvgStructure, metrics.AvgCommunication}

	maxIdx, minIdx := 0, 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[maxIdx] {
			maxIdx = i
		}
		if values[i] < values[minIdx] {
			minIdx = i
		}
	}
	return reportDimensions[maxIdx], reportDimensions[minIdx]
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
