package domain

import "github.com/shopspring/decimal"

type ApartmentStatus string

const (
	ApartmentAvailable ApartmentStatus = "Bo‘sh"
	ApartmentReserved  ApartmentStatus = "Band qilingan"
	ApartmentSold      ApartmentStatus = "Sotilgan"
)

type Apartment struct {
	ID         int64
	ObjectID   int64
	ObjectName string
	RoomNumber string
	Floor      int
	Rooms      int
	Area       decimal.Decimal
	Price      decimal.Decimal
	Status     ApartmentStatus
}

// Reservable reports whether a new payment plan may be attached to the apartment.
func (a Apartment) Reservable() bool {
	return a.Status == ApartmentAvailable || a.Status == ""
}
