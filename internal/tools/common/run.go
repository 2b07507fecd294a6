package common

import (
	"context"
	"os"
	"time"

	"github.com/sandeepkv93/cms-admin-backend/internal/tools/ui"
)

const DefaultTimeout = 2 * time.Minute

// Run executes fn under timeout. In CI mode the outcome is printed as JSON on
// stdout, otherwise fn runs behind the progress view.
func Run(ci bool, timeout time.Duration, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if !ci {
		return ui.Run(ctx, title, fn)
	}
	start := time.Now()
	details, err := fn(ctx)
	_ = WriteCIResult(os.Stdout, NewCIResult(title, details, err, time.Since(start)))
	return details, err
}
