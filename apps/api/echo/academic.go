package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
)

type academicApi struct {
	svc      *academic.Service
	validate *validator.Validate
}

func registerAcademicAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *academic.Service, validate *validator.Validate) {
	api := academicApi{
		svc:      svc,
		validate: validate,
	}

	// all academic endpoints require auth
	sg := g.Group("/students", jwt)
	sg.POST("", api.createStudent, staffMiddleware())
	sg.GET("", api.queryStudents, staffMiddleware())
	sg.POST("/promote", api.promote, staffMiddleware())
	sg.POST("/demote", api.demote, staffMiddleware())

	// detail endpoints: staff, or the student themselves
	dg := sg.Group("/:roll", selfOrStaffMiddleware())
	dg.GET("", api.retrieveStudent)
	dg.GET("/gpas", api.semesterGPAs)
	dg.GET("/gpas/:semester", api.semesterGPA)
	dg.GET("/insights", api.insights)
	dg.POST("/archive", api.archive, staffMiddleware())

	subg := g.Group("/subjects", jwt, staffMiddleware())
	subg.POST("", api.createSubject)
	subg.GET("", api.querySubjects)

	g.POST("/attendance", api.recordAttendance, jwt, staffMiddleware())
	g.POST("/marks", api.enterMarks, jwt, staffMiddleware())
}

// Handlers

func (api *academicApi) createStudent(ctx echo.Context) error {
	var data academic.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	stu, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, stu)
}

func (api *academicApi) queryStudents(ctx echo.Context) error {
	filter := new(academic.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []academic.Student{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []academic.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *academicApi) retrieveStudent(ctx echo.Context) error {
	stu, err := api.svc.GetByRoll(ctx.Request().Context(), ctx.Param("roll"))
	if err != nil {
		return errors.Wrap(err, "finding student by roll number")
	}
	return ctx.JSON(http.StatusOK, stu)
}

func (api *academicApi) promote(ctx echo.Context) error {
	var data RollsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RollsRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	count, err := api.svc.Promote(ctx.Request().Context(), data.Rolls)
	if err != nil {
		return errors.Wrap(err, "promoting students")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: count})
}

func (api *academicApi) demote(ctx echo.Context) error {
	var data RollsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RollsRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	count, err := api.svc.Demote(ctx.Request().Context(), data.Rolls)
	if err != nil {
		return errors.Wrap(err, "demoting students")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: count})
}

func (api *academicApi) archive(ctx echo.Context) error {
	var data ArchiveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ArchiveRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.Archive(ctx.Request().Context(), ctx.Param("roll"), data.Semester)
	if err != nil {
		return errors.Wrap(err, "archiving semester")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *academicApi) semesterGPAs(ctx echo.Context) error {
	recs, err := api.svc.SemesterGPAs(ctx.Request().Context(), ctx.Param("roll"))
	if err != nil {
		return errors.Wrap(err, "querying semester GPAs")
	}
	if recs == nil {
		recs = []academic.SemesterGPARecord{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *academicApi) semesterGPA(ctx echo.Context) error {
	semester, err := strconv.Atoi(ctx.Param("semester"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "semester", Error: "must be an integer"})
	}

	rec, err := api.svc.SemesterGPA(ctx.Request().Context(), ctx.Param("roll"), semester)
	if err != nil {
		return errors.Wrap(err, "finding semester GPA")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *academicApi) insights(ctx echo.Context) error {
	ins, err := api.svc.Insights(ctx.Request().Context(), ctx.Param("roll"))
	if err != nil {
		return errors.Wrap(err, "computing insights")
	}
	return ctx.JSON(http.StatusOK, ins)
}

func (api *academicApi) createSubject(ctx echo.Context) error {
	var data academic.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *academicApi) querySubjects(ctx echo.Context) error {
	semester, err := strconv.Atoi(ctx.QueryParam("semester"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "semester", Error: "must be an integer"})
	}

	subjects, err := api.svc.SubjectsBySemester(ctx.Request().Context(), semester)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []academic.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *academicApi) recordAttendance(ctx echo.Context) error {
	var data AttendanceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttendanceRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RecordAttendance(ctx.Request().Context(), data.Entries...); err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicApi) enterMarks(ctx echo.Context) error {
	var data academic.MarksEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarksEntry")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.EnterMarks(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "entering marks")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	RollsRequest struct {
		Rolls []string `json:"rolls" validate:"required,min=1,dive,rollnum"`
	}

	CountResponse struct {
		Count int `json:"count"`
	}

	ArchiveRequest struct {
		Semester int `json:"semester" validate:"required,min=1,max=8"`
	}

	AttendanceRequest struct {
		Entries []academic.AttendanceEntry `json:"entries" validate:"required,min=1"`
	}
)

func (rr *RollsRequest) Validate(validate *validator.Validate) error {
	for i, roll := range rr.Rolls {
		rr.Rolls[i] = core.CleanString(roll, true /* lower */)
	}
	return validate.Struct(rr)
}

func (ar *ArchiveRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(ar)
}

func (ar *AttendanceRequest) Validate(validate *validator.Validate) error {
	if err := validate.Struct(ar); err != nil {
		return err
	}
	for i := range ar.Entries {
		if err := ar.Entries[i].Validate(validate); err != nil {
			return err
		}
	}
	return nil
}
