package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tradepost/funcircle/pkg/conversations"
	"github.com/tradepost/funcircle/pkg/friends"
	httputil "github.com/tradepost/funcircle/pkg/http"
	"github.com/tradepost/funcircle/pkg/http/middlewares"
	"github.com/tradepost/funcircle/pkg/images"
	"github.com/tradepost/funcircle/pkg/notifications"
	"github.com/tradepost/funcircle/pkg/pubsub"
	"github.com/tradepost/funcircle/pkg/realtime"
	"github.com/tradepost/funcircle/pkg/redis"
	"github.com/tradepost/funcircle/pkg/sessions"
	"github.com/tradepost/funcircle/pkg/sql"
	"github.com/tradepost/funcircle/pkg/stories"
	"github.com/tradepost/funcircle/pkg/suggestions"
	"github.com/tradepost/funcircle/pkg/users"
)

// sweepWorkers bounds concurrent media deletes when the sweep route is hit.
const sweepWorkers = 4

var server = &cobra.Command{
	Use:   "server",
	Short: "runs the api server",
	RunE:  runServer,
}

func runServer(*cobra.Command, []string) error {
	rdb, err := redis.Connect(context.Background(), config.Redis)
	if err != nil {
		return err
	}

	db, err := sql.Open(config.DB)
	if err != nil {
		return errors.Wrap(err, "failed to open db")
	}

	queue := pubsub.NewQueue(rdb)
	defer queue.Close()

	sm := sessions.NewSessionManager(rdb)
	amw := middlewares.NewAuthenticationMiddleware(sm)

	userBackend := users.NewUserBackend(db)

	var searcher friends.AccountSearcher = userBackend
	if len(config.Elastic.Addresses) > 0 {
		client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: config.Elastic.Addresses})
		if err != nil {
			return errors.Wrap(err, "failed to create elasticsearch client")
		}

		searcher = users.NewSearchBackend(client, config.Elastic.Index)
	}

	friendsBackend := friends.NewBackend(db)
	storiesBackend := stories.NewBackend(db)
	conversationsBackend := conversations.NewBackend(db)
	media := images.NewImagesBackend(config.Data.Path, config.Data.BaseURL)

	engine := suggestions.NewEngine(friendsBackend, userBackend, storiesBackend, config.Settings.Timeout)

	hub := realtime.NewHub(realtime.NewRules(conversationsBackend))
	events, err := queue.Subscribe(pubsub.FriendsTopic, pubsub.StoriesTopic, pubsub.MessagesTopic)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe")
	}

	go hub.Run(events)

	r := mux.NewRouter()

	r.MethodNotAllowedHandler = http.HandlerFunc(httputil.NotAllowedHandler)
	r.NotFoundHandler = http.HandlerFunc(httputil.NotFoundHandler)

	friendsEndpoint := friends.NewEndpoint(friendsBackend, searcher, engine, queue, amw, config.Settings.Timeout)
	mount(r, "/v1/friends", friendsEndpoint.Router())

	storiesEndpoint := stories.NewEndpoint(
		storiesBackend,
		stories.NewSweeper(storiesBackend, media, queue, sweepWorkers),
		media,
		queue,
		amw,
		config.Settings.Timeout,
		config.Settings.SweepToken,
	)
	mount(r, "/v1/stories", storiesEndpoint.Router())

	conversationsEndpoint := conversations.NewEndpoint(conversationsBackend, queue, amw)
	mount(r, "/v1/conversations", conversationsEndpoint.Router())

	imagesEndpoint := images.NewEndpoint(media, amw)
	mount(r, "/v1/images/upload", imagesEndpoint.Router())

	notificationsEndpoint := notifications.NewEndpoint(notifications.NewStorage(rdb), amw)
	mount(r, "/v1/notifications", notificationsEndpoint.Router())

	realtimeEndpoint := realtime.NewEndpoint(hub, amw)
	mount(r, "/v1/realtime", realtimeEndpoint.Router())

	addr := fmt.Sprintf("%s:%d", config.API.Host, config.API.Port)
	log.Printf("listening on %s\n", addr)

	return http.ListenAndServe(addr, handlers.LoggingHandler(os.Stdout, httputil.CORS(config.Settings.Origins)(r)))
}

// mount serves a sub router under prefix, the sub router sees paths
// relative to it.
func mount(r *mux.Router, prefix string, h http.Handler) {
	r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, ensureSlash(h)))
}

func ensureSlash(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" {
			r.URL.Path = "/"
		}

		h.ServeHTTP(w, r)
	})
}
