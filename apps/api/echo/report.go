package echoapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type reportApi struct {
	svc      *report.Service
	classSvc *class.Service
}

func registerReportAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *report.Service,
	classSvc *class.Service,
) {
	api := reportApi{
		svc:      svc,
		classSvc: classSvc,
	}

	rg := g.Group("/classes/:id/report", jwt, teacherMiddleware(), api.ownedClassMiddleware())
	rg.GET("", api.retrieve)
	rg.GET("/export", api.export)

	g.GET("/feed", api.feed, jwt, studentMiddleware())
}

func (api *reportApi) ownedClassMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			cls, err := api.classSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding class by ID")
			}
			if cls.TeacherID != claims.Subject && !claims.IsAdmin {
				return errHttpNotFound
			}
			return next(ctx)
		}
	}
}

// Handlers

func (api *reportApi) retrieve(ctx echo.Context) error {
	rpt, err := api.svc.BuildReport(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building report")
	}
	return ctx.JSON(http.StatusOK, rpt)
}

func (api *reportApi) export(ctx echo.Context) error {
	groupBy := ctx.QueryParam("group_by")
	switch groupBy {
	case "", report.GroupByLastName, report.GroupByGender:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid group_by")
	}

	rpt, err := api.svc.BuildReport(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building report")
	}
	data, err := report.ExportXLSX(rpt, groupBy)
	if err != nil {
		return errors.Wrap(err, "exporting report")
	}

	filename := fmt.Sprintf("report-%s-%s.xlsx", rpt.ClassID, time.Now().UTC().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, xlsxContentType, data)
}

func (api *reportApi) feed(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	feed, err := api.svc.StudentFeed(ctx.Request().Context(), claims.Subject, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "building student feed")
	}
	return ctx.JSON(http.StatusOK, feed)
}
