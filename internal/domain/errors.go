package domain

import "errors"

var (
	// ErrInvalidItem rejects construction of an item with an empty action.
	ErrInvalidItem = errors.New("item action is empty")

	// ErrClockRegression signals an attempt to move a watermark backwards.
	ErrClockRegression = errors.New("watermark clock regression")

	// ErrClassifierUnavailable wraps transport failures talking to the model
	// service. The whole cycle is retried; the watermark must not advance.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrResponseParse wraps a malformed model reply. Scoped to one document;
	// the cycle continues.
	ErrResponseParse = errors.New("unparseable model response")
)
