// Package controller implements the core business logic (service layer)
// of the HR service: companies, users, employees, CSV imports and login.
// Every call is scoped to the caller's company and mutations emit events.
package controller

import (
	"github.com/gartstein/hr/internal/hr/auth"
	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/events"
	"github.com/google/uuid"
)

type EventProducer interface {
	Produce(eventType events.EventType, companyID uuid.UUID, payload any)
}

func requireCaller(caller *auth.Claims) error {
	if caller == nil {
		return e.ErrUnauthorized
	}
	return nil
}

func requireAdmin(caller *auth.Claims) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.Admin {
		return e.ErrForbidden
	}
	return nil
}
