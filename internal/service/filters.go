package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidFilter  = errors.New("invalid filter")
	ErrStorageFailure = errors.New("storage failure")
)

var validate = validator.New()

// RawFilters are the report filters as received from the transport.
type RawFilters struct {
	StartDate   string   `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string   `json:"endDate" validate:"required,datetime=2006-01-02"`
	TenantID    string   `json:"tenantId,omitempty" validate:"omitempty,number"`
	LocationIDs []string `json:"locationIds,omitempty" validate:"omitempty,dive,number"`
	UserIDs     []string `json:"userIds,omitempty" validate:"omitempty,dive,number"`
}

// Filters is the validated form of RawFilters. Start and End are calendar dates (UTC
// midnight) and the range is inclusive.
type Filters struct {
	Start       time.Time
	End         time.Time
	TenantID    int64
	LocationIDs []int64
	UserIDs     []int64
}

// Days is the inclusive length of the range.
func (f Filters) Days() int {
	return int(f.End.Sub(f.Start).Hours()/24) + 1
}

// ParseFilters validates raw filters. Every failure wraps ErrInvalidFilter.
func ParseFilters(raw RawFilters) (Filters, error) {
	raw.StartDate = strings.TrimSpace(raw.StartDate)
	raw.EndDate = strings.TrimSpace(raw.EndDate)
	raw.TenantID = strings.TrimSpace(raw.TenantID)
	raw.LocationIDs = trimAll(raw.LocationIDs)
	raw.UserIDs = trimAll(raw.UserIDs)

	if err := validate.Struct(raw); err != nil {
		return Filters{}, fmt.Errorf("%w: %s", ErrInvalidFilter, describe(err))
	}

	start, _ := time.Parse(time.DateOnly, raw.StartDate)
	end, _ := time.Parse(time.DateOnly, raw.EndDate)
	if end.Before(start) {
		return Filters{}, fmt.Errorf("%w: endDate %s is before startDate %s", ErrInvalidFilter, raw.EndDate, raw.StartDate)
	}

	f := Filters{Start: start, End: end}
	var err error
	if raw.TenantID != "" {
		if f.TenantID, err = strconv.ParseInt(raw.TenantID, 10, 64); err != nil {
			return Filters{}, fmt.Errorf("%w: tenantId: %v", ErrInvalidFilter, err)
		}
	}
	if f.LocationIDs, err = parseIDs("locationIds", raw.LocationIDs); err != nil {
		return Filters{}, err
	}
	if f.UserIDs, err = parseIDs("userIds", raw.UserIDs); err != nil {
		return Filters{}, err
	}
	return f, nil
}

func parseIDs(field string, raw []string) ([]int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFilter, field, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func trimAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
