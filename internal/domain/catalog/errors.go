package catalog

import "errors"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrNotAPlan        = errors.New("product is not a subscription plan")
	ErrNotAPackage     = errors.New("product is not a credit package")
	ErrMissingPrice    = errors.New("product has no price id")
	ErrInternal        = errors.New("internal error")
)
