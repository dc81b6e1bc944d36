package echoapi

import (
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/course"
	streamsvc "github.com/trezcool/darasa/services/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type streamApi struct {
	hub       *streamsvc.Hub
	courseSvc *course.Service
	classSvc  *class.Service
}

func registerStreamAPI(
	g *echo.Group,
	hub *streamsvc.Hub,
	courseSvc *course.Service,
	classSvc *class.Service,
) {
	api := streamApi{
		hub:       hub,
		courseSvc: courseSvc,
		classSvc:  classSvc,
	}

	// token rides in the query string: WebSocket handshakes cannot set headers
	jwt := middleware.JWTWithConfig(streamJWTConfig)
	sg := g.Group("/streams", jwt)
	sg.GET("/courses/:id", api.streamCourse)
	sg.GET("/classes/:id", api.streamClass)
}

// Handlers

func (api *streamApi) streamCourse(ctx echo.Context) error {
	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return api.stream(ctx, course.Topic(crs.ID), crs)
}

func (api *streamApi) streamClass(ctx echo.Context) error {
	cls, err := api.classSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	return api.stream(ctx, class.Topic(cls.ID), cls)
}

// stream upgrades the connection and relays snapshots: the current state
// first, then every published update until either side hangs up. Clients
// always replace their state wholesale with the latest frame.
func (api *streamApi) stream(ctx echo.Context, topic string, snapshot interface{}) error {
	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}
	defer conn.Close()

	sub := api.hub.Subscribe(topic)
	defer sub.Close()

	if err = conn.WriteJSON(snapshot); err != nil {
		return nil
	}

	// reader pump; the client never sends data but we must consume control
	// frames to notice the close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case data, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err = conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return nil
			}
		case <-done:
			return nil
		}
	}
}
