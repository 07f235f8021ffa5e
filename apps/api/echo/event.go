package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core"
	"github.com/trezcool/certdesk/core/event"
	"github.com/trezcool/certdesk/core/user"
)

type eventApi struct {
	svc      *event.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerEventAPI(g *echo.Group, deps ServerDeps) {
	api := eventApi{
		svc:      deps.EventSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	eg := g.Group("/events")
	eg.GET("", api.query)
	eg.POST("", api.create)
}

func (api *eventApi) query(ctx echo.Context) error {
	events, err := api.svc.Query(ctx.Request().Context(), core.CleanString(ctx.QueryParam("organizer_id")))
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	org, err := api.usrSvc.GetWithRole(reqCtx, data.OrganizerID, user.RoleOrganizer)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errOrganizerNotFound
		}
		return errors.Wrap(err, "finding organizer")
	}
	orgName := org.ClubName
	if orgName == "" {
		orgName = org.Name
	}

	evt, err := api.svc.Create(reqCtx, data, orgName)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, EventResponse{Success: true, Event: evt})
}

type EventResponse struct {
	Success bool        `json:"success"`
	Event   event.Event `json:"event"`
}
