package handler

import (
	"time"

	"github.com/roadwatch/damage-portal/internal/core/domain"
)

type registerRequest struct {
	Username   string `json:"username"   validate:"required"`
	Password   string `json:"password"   validate:"required"`
	Name       string `json:"name"       validate:"required"`
	Role       string `json:"role"       validate:"required,role"`
	Department string `json:"department" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type loginResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
}

type userResponse struct {
	User *domain.User `json:"user"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type coordinatesRequest struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

type createDamageRequest struct {
	Type         string             `json:"type"          validate:"required"`
	Severity     string             `json:"severity"      validate:"required"`
	Location     string             `json:"location"      validate:"required"`
	Coordinates  coordinatesRequest `json:"coordinates"`
	Description  string             `json:"description"`
	ReportedDate *time.Time         `json:"reported_date"`
	Status       string             `json:"status"`
}

type acceptedResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}
