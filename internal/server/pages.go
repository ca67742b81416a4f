package server

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/nibzard/taskboard/internal/task"
	"github.com/nibzard/taskboard/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/app.css
var appCSS []byte

const pageTitle = "Task Board"

// draftForm is the create form as posted by the board page.
type draftForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
	Priority    string `form:"priority"`
	DueDate     string `form:"dueDate"`
	Sort        string `form:"sort"`
}

func (f draftForm) draft() task.Draft {
	return task.Draft{
		Title:       f.Title,
		Description: f.Description,
		Priority:    f.Priority,
		DueDate:     f.DueDate,
	}
}

type boardPage struct {
	Title      string
	Board      view.Board
	Modes      []view.SortMode
	Priorities []task.Priority
	Draft      draftForm
	Error      string
}

type confirmPage struct {
	Title string
	Task  task.Task
	Mode  view.SortMode
}

type errorPage struct {
	Title   string
	Status  int
	Message string
	Mode    view.SortMode
}

func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"badge": func(t task.Task) string {
			return string(view.BadgeFor(t.Priority, t.IsCompleted))
		},
		"due":       view.FormatDue,
		"boardURL":  boardURL,
		"sortLabel": sortLabel,
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
	}
	return template.New("pages").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// sortMode resolves the requested sort, falling back to the server default
// for empty or unknown values.
func (s *Server) sortMode(raw string) view.SortMode {
	if strings.TrimSpace(raw) == "" {
		return s.defaultSort
	}
	mode, err := view.ParseSortMode(raw)
	if err != nil {
		return s.defaultSort
	}
	return mode
}

func boardURL(mode view.SortMode) string {
	return "/?sort=" + url.QueryEscape(string(mode))
}

func sortLabel(mode view.SortMode) string {
	if mode == view.SortDate {
		return "Due date"
	}
	return "Priority"
}

func (s *Server) handleBoard(c *gin.Context) {
	mode := s.sortMode(c.Query("sort"))
	s.renderBoard(c, http.StatusOK, mode, draftForm{Priority: string(task.PriorityLow)}, "")
}

func (s *Server) renderBoard(c *gin.Context, status int, mode view.SortMode, form draftForm, formErr string) {
	tasks, err := s.svc.List(c.Request.Context())
	if err != nil {
		s.renderError(c, err, mode)
		return
	}
	c.HTML(status, "board.html", boardPage{
		Title:      pageTitle,
		Board:      view.NewBoard(tasks, mode),
		Modes:      []view.SortMode{view.SortPriority, view.SortDate},
		Priorities: task.Priorities,
		Draft:      form,
		Error:      formErr,
	})
}

func (s *Server) handleCreateForm(c *gin.Context) {
	var form draftForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		s.renderError(c, &task.ValidationError{Err: err}, s.defaultSort)
		return
	}
	mode := s.sortMode(form.Sort)

	if _, err := s.svc.Create(c.Request.Context(), form.draft()); err != nil {
		if statusFor(err) == http.StatusBadRequest {
			s.renderBoard(c, http.StatusBadRequest, mode, form, err.Error())
			return
		}
		s.renderError(c, err, mode)
		return
	}
	c.Redirect(http.StatusSeeOther, boardURL(mode))
}

func (s *Server) handleToggleForm(c *gin.Context) {
	ctx := c.Request.Context()
	mode := s.sortMode(c.PostForm("sort"))

	current, err := s.svc.Get(ctx, c.Param("id"))
	if err != nil {
		s.renderError(c, err, mode)
		return
	}
	flipped := !current.IsCompleted
	if _, err := s.svc.Update(ctx, current.ID, task.Patch{IsCompleted: &flipped}); err != nil {
		s.renderError(c, err, mode)
		return
	}
	c.Redirect(http.StatusSeeOther, boardURL(mode))
}

func (s *Server) handleConfirmDelete(c *gin.Context) {
	mode := s.sortMode(c.Query("sort"))
	t, err := s.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderError(c, err, mode)
		return
	}
	c.HTML(http.StatusOK, "confirm.html", confirmPage{
		Title: pageTitle,
		Task:  t,
		Mode:  mode,
	})
}

func (s *Server) handleDeleteForm(c *gin.Context) {
	mode := s.sortMode(c.PostForm("sort"))
	if err := s.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.renderError(c, err, mode)
		return
	}
	c.Redirect(http.StatusSeeOther, boardURL(mode))
}

func (s *Server) handleNoRoute(c *gin.Context) {
	c.HTML(http.StatusNotFound, "error.html", errorPage{
		Title:   pageTitle,
		Status:  http.StatusNotFound,
		Message: "page not found",
		Mode:    s.defaultSort,
	})
}

func (s *Server) renderError(c *gin.Context, err error, mode view.SortMode) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("page failed", "path", c.Request.URL.Path, "err", err)
	}
	_ = c.Error(err)
	c.HTML(status, "error.html", errorPage{
		Title:   pageTitle,
		Status:  status,
		Message: publicMessage(err, status),
		Mode:    mode,
	})
	c.Abort()
}
