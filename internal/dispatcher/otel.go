package dispatcher

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/airshower/varbeam/internal/dispatcher"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

func joinErrors(errs []error) error {
	return errors.Join(errs...)
}
