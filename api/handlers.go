package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/ANTOSOJAN/task-management-system/domain"
)

const formBodyLimit = "64K"

// Register wires up all routes on the provided Echo instance.
func Register(e *echo.Echo, svc BoardService, auth Verifier, health HealthCheck, page PageConfig, logger *log.Logger) error {
	r, err := NewRenderer()
	if err != nil {
		return err
	}
	e.Renderer = r

	e.Use(middleware.Recover(), middleware.BodyLimit(formBodyLimit), RequestMetrics(logger), Identify(auth, logger))
	e.StaticFS("/static", echo.MustSubFS(staticFS, "static"))

	e.GET("/healthz", healthz(health, logger))
	e.GET("/", home(svc, page))
	e.GET("/create-board-form", createBoardForm())
	e.POST("/create-board", createBoard(svc))
	e.GET("/board/:boardId", viewBoard(svc))
	e.POST("/board/:boardId/add-user", addUser(svc))
	e.POST("/board/:boardId/add-task", addTask(svc))
	e.POST("/board/:boardId/task/:taskId/toggle", toggleTask(svc))
	e.POST("/board/:boardId/task/:taskId/edit", editTask(svc))
	e.POST("/board/:boardId/task/:taskId/delete", deleteTask(svc))
	e.POST("/board/:boardId/rename", renameBoard(svc))
	e.POST("/board/:boardId/delete", deleteBoard(svc))
	e.POST("/board/:boardId/remove-user", removeUsers(svc))
	return nil
}

func healthz(check HealthCheck, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if check == nil {
			return c.NoContent(http.StatusOK)
		}
		if err := check(c.Request().Context()); err != nil {
			logger.WithError(err).Warn("health check failed")
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	}
}

func queryTag(c echo.Context) domain.ErrorTag {
	return domain.ErrorTag(c.QueryParam("error"))
}

func home(svc BoardService, page PageConfig) echo.HandlerFunc {
	return func(c echo.Context) error {
		m := metricsFrom(c)
		start := time.Now()
		view := svc.Home(c.Request().Context(), identityFrom(c))
		m.ObserveService(time.Since(start))

		tag := queryTag(c)
		if view.Error != "" {
			m.SetOutcome(string(view.Error))
			tag = view.Error
		}
		return render(c, "main.html", homePage{Config: page, View: view, Error: tag})
	}
}

func createBoardForm() echo.HandlerFunc {
	return func(c echo.Context) error {
		id := identityFrom(c)
		if id == nil {
			return redirect(c, domain.Home())
		}
		return render(c, "create_board.html", createBoardPage{Identity: id, Error: queryTag(c)})
	}
}

func viewBoard(svc BoardService) echo.HandlerFunc {
	return func(c echo.Context) error {
		m := metricsFrom(c)
		start := time.Now()
		view, out := svc.ViewBoard(c.Request().Context(), identityFrom(c), c.Param("boardId"))
		m.ObserveService(time.Since(start))
		if view == nil {
			return redirect(c, out)
		}
		return render(c, "board.html", boardPage{View: view, Error: queryTag(c)})
	}
}

func createBoard(svc BoardService) echo.HandlerFunc {
	return mutation(func(ctx context.Context, id *domain.Identity, c echo.Context) domain.Outcome {
		return svc.CreateBoard(ctx, id, c.FormValue("title"), c.FormValue("description"))
	})
}

func addUser(svc BoardService) echo.HandlerFunc {
	return mutation(func(ctx context.Context, id *domain.Identity, c echo.Context) domain.Outcome {
		return svc.AddUser(ctx, id, c.Param("boardId"), c.FormValue("email"))
	})
}

func addTask(svc BoardService) echo.HandlerFunc {
	return mutation(func(ctx context.Context, id *domain.Identity, c echo.Context) domain.Outcome {
		return svc.AddTask(ctx, id, c.Param("boardId"), taskInput(c))
	})
}

func toggleTask(svc BoardService) echo.HandlerFunc {
	return mutation(func(ctx context.Context, id *domain.Identity, c echo.Context) domain.Outcome {
		return svc.ToggleTask(ctx, id, c.Param("boardId"), c.Param("taskId"))
	})
}

func editTask(svc BoardService) echo.HandlerFunc {
	return mutation(func(ctx context.Context, id *domain.Identity, c echo.Context) domain.Outcome {
		return svc.EditTask(ctx, id, c.Param("boardId"), c.Param("taskId"), taskInput(c))
	})
}

func deleteTask(svc BoardService) echo.HandlerFunc {
	return mutation(func(ctx context.Context, id *domain.Identity, c echo.Context) domain.Outcome {
		return svc.DeleteTask(ctx, id, c.Param("boardId"), c.Param("taskId"))
	})
}

func renameBoard(svc BoardService) echo.HandlerFunc {
	return mutation(func(ctx context.Context, id *domain.Identity, c echo.Context) domain.Outcome {
		return svc.RenameBoard(ctx, id, c.Param("boardId"), c.FormValue("new_title"))
	})
}

func deleteBoard(svc BoardService) echo.HandlerFunc {
	return mutation(func(ctx context.Context, id *domain.Identity, c echo.Context) domain.Outcome {
		return svc.DeleteBoard(ctx, id, c.Param("boardId"))
	})
}

func removeUsers(svc BoardService) echo.HandlerFunc {
	return mutation(func(ctx context.Context, id *domain.Identity, c echo.Context) domain.Outcome {
		return svc.RemoveUsers(ctx, id, c.Param("boardId"), formList(c, "emails"))
	})
}

// mutation runs op and answers with a 303 redirect to its outcome.
// Anonymous callers are sent home without reaching the service.
func mutation(op func(ctx context.Context, id *domain.Identity, c echo.Context) domain.Outcome) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := identityFrom(c)
		if id == nil {
			return redirect(c, domain.Home())
		}
		m := metricsFrom(c)
		start := time.Now()
		out := op(c.Request().Context(), id, c)
		m.ObserveService(time.Since(start))
		return redirect(c, out)
	}
}

func redirect(c echo.Context, out domain.Outcome) error {
	metricsFrom(c).SetOutcome(string(out.Tag))
	return c.Redirect(http.StatusSeeOther, out.Location())
}

func render(c echo.Context, name string, data any) error {
	start := time.Now()
	err := c.Render(http.StatusOK, name, data)
	metricsFrom(c).ObserveRender(time.Since(start))
	return err
}

func taskInput(c echo.Context) domain.TaskInput {
	return domain.TaskInput{
		Title:     c.FormValue("title"),
		DueDate:   c.FormValue("due_date"),
		Assignees: formList(c, "assignees"),
	}
}

// formList collects a repeated form field, accepting both name and name[].
func formList(c echo.Context, name string) []string {
	form, err := c.FormParams()
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(form[name])+len(form[name+"[]"]))
	out = append(out, form[name]...)
	return append(out, form[name+"[]"]...)
}
