package model

import (
	"errors"
	"github.com/shopspring/decimal"
)

type Product struct {
	Id       string
	Name     string
	Category string
	Price    decimal.Decimal
}

var (
	ErrProductNotFound = errors.New("product not found")
)
