package website

import (
	"net/http"
	"regexp"

	"git.burrowchat.net/burrow/burrow/src/bus"
	"git.burrowchat.net/burrow/burrow/src/perf"
	"git.burrowchat.net/burrow/burrow/src/presence"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	RegexPosts             = regexp.MustCompile(`^/api/v1/posts$`)
	RegexPost              = regexp.MustCompile(`^/api/v1/posts/(?P<postid>\d+)$`)
	RegexPostComments      = regexp.MustCompile(`^/api/v1/posts/(?P<postid>\d+)/comments$`)
	RegexPostBookmark      = regexp.MustCompile(`^/api/v1/posts/(?P<postid>\d+)/bookmark$`)
	RegexPostTyping        = regexp.MustCompile(`^/api/v1/posts/(?P<postid>\d+)/typing$`)
	RegexPostEvents        = regexp.MustCompile(`^/api/v1/posts/(?P<postid>\d+)/events$`)
	RegexComment           = regexp.MustCompile(`^/api/v1/comments/(?P<commentid>\d+)$`)
	RegexVotes             = regexp.MustCompile(`^/api/v1/votes$`)
	RegexTopics            = regexp.MustCompile(`^/api/v1/topics$`)
	RegexTopicSubscription = regexp.MustCompile(`^/api/v1/topics/(?P<topicid>\d+)/subscription$`)
	RegexUser              = regexp.MustCompile(`^/api/v1/users/(?P<userid>\d+)$`)
	RegexUserFollow        = regexp.MustCompile(`^/api/v1/users/(?P<userid>\d+)/follow$`)
	RegexNotifications     = regexp.MustCompile(`^/api/v1/notifications$`)
	RegexNotificationsRead = regexp.MustCompile(`^/api/v1/notifications/read$`)
	RegexSocket            = regexp.MustCompile(`^/api/v1/socket$`)
	RegexPerfmon           = regexp.MustCompile(`^/api/v1/perfmon$`)
	RegexCatchAll          = regexp.MustCompile(`^`)
)

func NewAPIRoutes(
	conn *pgxpool.Pool,
	eventBus *bus.Bus,
	tracker *presence.Tracker,
	perfCollector *perf.PerfCollector,
) http.Handler {
	router := &Router{}
	routes := RouteBuilder{
		Router: router,
		Middlewares: []Middleware{
			attachServices(conn, eventBus, tracker),
			trackRequestPerf(perfCollector),
			logContextErrorsMiddleware,
			panicCatcherMiddleware,
			identifyUser,
		},
	}

	routes.GET(RegexPosts, PostsFeed)
	routes.GET(RegexPost, GetPost)
	routes.GET(RegexPostComments, PostComments)
	routes.GET(RegexTopics, ListTopics)
	routes.GET(RegexUser, GetUser)
	routes.GET(RegexPostTyping, GetTypingUsers)

	// Live transports. Auth is optional on these; anyone may watch a post.
	routes.GET(RegexPostEvents, PostEvents)
	routes.GET(RegexSocket, Socket)

	authed := routes.WithMiddleware(needsAuth)
	authed.POST(RegexPosts, CreatePost)
	authed.POST(RegexPostComments, CreateComment)
	authed.DELETE(RegexComment, DeleteComment)
	authed.POST(RegexVotes, CastVote)
	authed.DELETE(RegexVotes, RemoveVote)
	authed.POST(RegexPostBookmark, BookmarkPost)
	authed.DELETE(RegexPostBookmark, UnbookmarkPost)
	authed.POST(RegexTopicSubscription, SubscribeToTopic)
	authed.DELETE(RegexTopicSubscription, UnsubscribeFromTopic)
	authed.POST(RegexUserFollow, FollowUser)
	authed.DELETE(RegexUserFollow, UnfollowUser)
	authed.GET(RegexNotifications, ListNotifications)
	authed.POST(RegexNotificationsRead, MarkNotificationsRead)
	authed.POST(RegexPostTyping, StartTyping)
	authed.DELETE(RegexPostTyping, StopTyping)

	admin := routes.WithMiddleware(adminsOnly)
	admin.GET(RegexPerfmon, Perfmon)

	routes.AnyMethod(RegexCatchAll, FourOhFour)

	return router
}

func attachServices(conn *pgxpool.Pool, eventBus *bus.Bus, tracker *presence.Tracker) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			c.Conn = conn
			c.EventBus = eventBus
			c.Presence = tracker
			return h(c)
		}
	}
}
