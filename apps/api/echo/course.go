package echoapi

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type courseApi struct {
	svc       *course.Service
	fileStore core.FileStore
	validate  *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *course.Service,
	fileStore core.FileStore,
	validate *validator.Validate,
) {
	api := courseApi{
		svc:       svc,
		fileStore: fileStore,
		validate:  validate,
	}

	cg := g.Group("/courses", jwt)
	cg.GET("/categories", api.queryCategories)
	cg.POST("", api.create, teacherMiddleware())
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)

	// write endpoints; the owning teacher only
	og := cg.Group("/:id", teacherMiddleware(), api.ownedCourseMiddleware())
	og.PUT("", api.update)
	og.DELETE("", api.destroy)

	og.POST("/units", api.addUnit)
	og.PUT("/units/:unitID", api.updateUnit)
	og.DELETE("/units/:unitID", api.deleteUnit)

	og.POST("/units/:unitID/lessons", api.addLesson)
	og.PUT("/units/:unitID/lessons/:lessonID", api.updateLesson)
	og.DELETE("/units/:unitID/lessons/:lessonID", api.deleteLesson)
	og.POST("/units/:unitID/lessons/:lessonID/study-guide", api.uploadStudyGuide)

	og.POST("/units/:unitID/lessons/:lessonID/quizzes", api.addQuiz)
	og.PUT("/units/:unitID/lessons/:lessonID/quizzes/:quizID", api.updateQuiz)
	og.DELETE("/units/:unitID/lessons/:lessonID/quizzes/:quizID", api.deleteQuiz)
}

// ownedCourseMiddleware hides courses the caller does not own; admins see all.
func (api *courseApi) ownedCourseMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding course by ID")
			}
			if crs.TeacherID != claims.Subject && !claims.IsAdmin {
				return errHttpNotFound
			}
			ctx.Set("course", crs)
			return next(ctx)
		}
	}
}

// Handlers

func (api *courseApi) queryCategories(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, course.Categories)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := course.QueryFilter{}
	if !claims.IsAdmin {
		// teachers see their own courses only
		filter.TeacherID = claims.Subject
	}

	courses, err := api.svc.Query(ctx.Request().Context(), &filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) addUnit(ctx echo.Context) error {
	var data course.NewUnit
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUnit")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.AddUnit(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding unit")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) updateUnit(ctx echo.Context) error {
	var data course.UpdateUnit
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUnit")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.UpdateUnit(ctx.Request().Context(), ctx.Param("id"), ctx.Param("unitID"), data)
	if err != nil {
		return errors.Wrap(err, "updating unit")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) deleteUnit(ctx echo.Context) error {
	crs, err := api.svc.DeleteUnit(ctx.Request().Context(), ctx.Param("id"), ctx.Param("unitID"))
	if err != nil {
		return errors.Wrap(err, "deleting unit")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) addLesson(ctx echo.Context) error {
	var data course.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.AddLesson(ctx.Request().Context(), ctx.Param("id"), ctx.Param("unitID"), data)
	if err != nil {
		return errors.Wrap(err, "adding lesson")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) updateLesson(ctx echo.Context) error {
	var data course.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.UpdateLesson(
		ctx.Request().Context(), ctx.Param("id"), ctx.Param("unitID"), ctx.Param("lessonID"), data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) deleteLesson(ctx echo.Context) error {
	crs, err := api.svc.DeleteLesson(
		ctx.Request().Context(), ctx.Param("id"), ctx.Param("unitID"), ctx.Param("lessonID"))
	if err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.JSON(http.StatusOK, crs)
}

// uploadStudyGuide stores the uploaded file and points the lesson at it.
func (api *courseApi) uploadStudyGuide(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "a file is required"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	courseID, lessonID := ctx.Param("id"), ctx.Param("lessonID")
	path := fmt.Sprintf("study-guides/%s/%s%s", courseID, lessonID, filepath.Ext(fileHeader.Filename))
	contentType := fileHeader.Header.Get("Content-Type")

	url, err := api.fileStore.Upload(ctx.Request().Context(), path, file, contentType)
	if err != nil {
		return errors.Wrap(err, "uploading study guide")
	}

	crs, err := api.svc.SetStudyGuide(ctx.Request().Context(), courseID, ctx.Param("unitID"), lessonID, url)
	if err != nil {
		return errors.Wrap(err, "setting study guide")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) addQuiz(ctx echo.Context) error {
	var data course.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.AddQuiz(
		ctx.Request().Context(), ctx.Param("id"), ctx.Param("unitID"), ctx.Param("lessonID"), data)
	if err != nil {
		return errors.Wrap(err, "adding quiz")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) updateQuiz(ctx echo.Context) error {
	var data course.UpdateQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuiz")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.UpdateQuiz(
		ctx.Request().Context(), ctx.Param("id"), ctx.Param("unitID"), ctx.Param("lessonID"), ctx.Param("quizID"), data)
	if err != nil {
		return errors.Wrap(err, "updating quiz")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) deleteQuiz(ctx echo.Context) error {
	crs, err := api.svc.DeleteQuiz(
		ctx.Request().Context(), ctx.Param("id"), ctx.Param("unitID"), ctx.Param("lessonID"), ctx.Param("quizID"))
	if err != nil {
		return errors.Wrap(err, "deleting quiz")
	}
	return ctx.JSON(http.StatusOK, crs)
}
