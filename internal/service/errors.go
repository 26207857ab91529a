package service

import "errors"

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrConfiguration    = errors.New("server configuration error")
	ErrProvider         = errors.New("payment provider error")
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrOrderNotFound    = errors.New("order not found")
	ErrArtworkNotFound  = errors.New("artwork not found")
)
