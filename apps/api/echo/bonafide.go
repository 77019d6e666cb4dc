package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core/bonafide"
)

type bonafideApi struct {
	svc      *bonafide.Service
	validate *validator.Validate
}

func registerBonafideAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *bonafide.Service, validate *validator.Validate) {
	api := bonafideApi{
		svc:      svc,
		validate: validate,
	}

	bg := g.Group("/bonafides", jwt)
	bg.POST("", api.create, studentMiddleware())
	bg.GET("", api.query)
	bg.GET("/print", api.bulkPrint, hodMiddleware())

	dg := bg.Group("/:id", requestAccessMiddleware(svc))
	dg.GET("", api.retrieve)
	dg.GET("/print", api.print)
	dg.POST("/approve", api.approve, officeMiddleware())
	dg.POST("/reject", api.reject, officeMiddleware())
	dg.POST("/sign", api.sign, staffMiddleware()) // HOD-or-office, resolved by the service
	dg.POST("/collect", api.collect, officeMiddleware())
}

// Handlers

func (api *bonafideApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data CreateBonafideRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CreateBonafideRequest")
	}

	// students only ever file for themselves
	nr := bonafide.NewRequest{StudentRoll: claims.Subject, Reason: data.Reason}
	if err := nr.Validate(api.validate); err != nil {
		return err
	}

	req, err := api.svc.Create(ctx.Request().Context(), nr)
	if err != nil {
		return errors.Wrap(err, "creating bonafide request")
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *bonafideApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(bonafide.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []bonafide.Request{})
	}
	// students only ever see their own requests
	if !(claims.IsStaff || claims.IsAdmin) {
		filter.StudentRoll = claims.Subject
	}

	reqs, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying bonafide requests")
	}
	if reqs == nil {
		reqs = []bonafide.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *bonafideApi) retrieve(ctx echo.Context) error {
	req, ok := ctx.Get(contextRequestKey).(bonafide.Request)
	if !ok {
		return errors.Wrap(errReqNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *bonafideApi) approve(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	change, err := api.svc.Approve(ctx.Request().Context(), ctx.Param("id"), actor)
	if err != nil {
		return errors.Wrap(err, "approving bonafide request")
	}
	return ctx.JSON(http.StatusOK, change)
}

func (api *bonafideApi) reject(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	var data RejectBonafideRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RejectBonafideRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	change, err := api.svc.Reject(ctx.Request().Context(), ctx.Param("id"), data.Reason, actor)
	if err != nil {
		return errors.Wrap(err, "rejecting bonafide request")
	}
	return ctx.JSON(http.StatusOK, change)
}

func (api *bonafideApi) sign(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	change, err := api.svc.MarkSigned(ctx.Request().Context(), ctx.Param("id"), actor)
	if err != nil {
		return errors.Wrap(err, "signing bonafide request")
	}
	return ctx.JSON(http.StatusOK, change)
}

func (api *bonafideApi) collect(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	change, err := api.svc.MarkCollected(ctx.Request().Context(), ctx.Param("id"), actor)
	if err != nil {
		return errors.Wrap(err, "collecting bonafide request")
	}
	return ctx.JSON(http.StatusOK, change)
}

func (api *bonafideApi) print(ctx echo.Context) error {
	blob, err := api.svc.Render(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "rendering certificate")
	}
	return ctx.Blob(http.StatusOK, "application/pdf", blob)
}

func (api *bonafideApi) bulkPrint(ctx echo.Context) error {
	blob, err := api.svc.BulkPrint(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "rendering certificates")
	}
	return ctx.Blob(http.StatusOK, "application/pdf", blob)
}

var (
	contextRequestKey   = "bonafideRequest"
	errReqNotFoundInCtx = errors.New("bonafide request not found in echo.Context")
)

// requestAccessMiddleware loads the request and ensures students can only
// reach their own; staff reach any.
func requestAccessMiddleware(svc *bonafide.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			req, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == bonafide.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding bonafide request by ID")
			}

			if claims.IsStaff || claims.IsAdmin || req.StudentRoll == claims.Subject {
				ctx.Set(contextRequestKey, req)
				return next(ctx)
			}
			return errHttpNotFound
		}
	}
}

type (
	CreateBonafideRequest struct {
		Reason string `json:"reason" validate:"required"`
	}

	RejectBonafideRequest struct {
		Reason string `json:"reason" validate:"required"`
	}
)

func (rr *RejectBonafideRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(rr)
}
