package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/bikeflow/internal/adapters/repository"
	"github.com/okian/bikeflow/internal/domain/flow"
)

// defaultTopN matches the explorer's default chart size.
const defaultTopN = 10

func param(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}

func directionParam(r *http.Request) (flow.Direction, error) {
	return flow.ParseDirection(param(r, "direction"))
}

func periodParam(r *http.Request) (flow.Period, error) {
	return flow.ParsePeriod(param(r, "period"))
}

// yearMonthParam returns "" when the parameter is absent.
func yearMonthParam(r *http.Request, name string) (flow.YearMonth, error) {
	v := param(r, name)
	if v == "" {
		return "", nil
	}
	return flow.ParseYearMonth(v)
}

// topNParam reads n, defaulting to defaultTopN and capping at limit.
func topNParam(r *http.Request, limit int) (int, error) {
	v := param(r, "n")
	if v == "" {
		return min(defaultTopN, limit), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: n must be a positive integer", ErrBadRequest)
	}
	return min(n, limit), nil
}

// ntaParam returns the nta parameter, requiring it to exist in d.
func ntaParam(r *http.Request, d *repository.Dataset) (string, error) {
	nta := param(r, "nta")
	if nta == "" {
		return "", fmt.Errorf("%w: nta", ErrMissingParam)
	}
	if !d.HasNTA(nta) {
		return "", fmt.Errorf("%w: %s", repository.ErrNotFound, nta)
	}
	return nta, nil
}
