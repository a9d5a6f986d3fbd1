package service

import (
	"fmt"

	"github.com/flicky/plant-shop-api/internal/model"
)

// wrapStore adds context to persistence failures. Domain errors pass through
// unchanged so their message reaches the client as written.
func wrapStore(op string, err error) error {
	if model.Kind(err) != nil {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
