package http

import (
	"encoding/json"
	stdhttp "net/http"
	"os"
	"strings"
	"sync"

	yaml "gopkg.in/yaml.v3"

	"github.com/dimasfh/sociagram/internal/app/controllers"
	"github.com/dimasfh/sociagram/internal/platform/middleware"
	"github.com/dimasfh/sociagram/internal/platform/realtime"
	"github.com/dimasfh/sociagram/pkg/logger"
)

type RouterConfig struct {
	AuthCtrl         *controllers.AuthController
	UserCtrl         *controllers.UserController
	PostCtrl         *controllers.PostController
	ConversationCtrl *controllers.ConversationController
	Gateway          *realtime.Gateway
	TokenValidator   middleware.TokenValidator
	Logger           logger.Log
	SwaggerEnable    bool
	StaticDir        string
}

func NewRouter(cfg RouterConfig) stdhttp.Handler {
	mux := stdhttp.NewServeMux()

	// Root endpoint - API information
	mux.HandleFunc("/", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(stdhttp.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "endpoint not found",
			})
			return
		}
		if r.Method != stdhttp.MethodGet {
			w.WriteHeader(stdhttp.StatusMethodNotAllowed)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "method not allowed",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "ok",
			"name":        "Sociagram API",
			"version":     "0.1.0",
			"description": "Social media backend with realtime messaging",
			"features": map[string]bool{
				"auth":          true,
				"users":         true,
				"posts":         true,
				"conversations": true,
				"realtime":      true,
			},
			"endpoints": map[string]string{
				"health":        "/health",
				"websocket":     "/ws",
				"documentation": "/docs",
				"openapi_yaml":  "/openapi.yaml",
				"openapi_json":  "/openapi.json",
			},
		})
	})

	mux.HandleFunc("/health", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
		})
	})

	splitSegments := func(path string) []string {
		raw := strings.Split(path, "/")
		out := make([]string, 0, len(raw))
		for _, segment := range raw {
			if segment == "" {
				continue
			}
			out = append(out, segment)
		}
		return out
	}

	// --- Documentation endpoints (if enabled) ---
	if cfg.SwaggerEnable {
		var (
			once     sync.Once
			yamlData []byte
			yamlErr  error
		)
		loadYAML := func() ([]byte, error) {
			once.Do(func() { yamlData, yamlErr = os.ReadFile("docs/openapi.yaml") })
			return yamlData, yamlErr
		}
		mux.HandleFunc("/openapi.yaml", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			data, err := loadYAML()
			if err != nil {
				w.WriteHeader(stdhttp.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
			w.Write(data)
		})
		mux.HandleFunc("/openapi.json", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			data, err := loadYAML()
			if err != nil {
				w.WriteHeader(stdhttp.StatusNotFound)
				return
			}
			var v interface{}
			if err := yaml.Unmarshal(data, &v); err != nil {
				w.WriteHeader(stdhttp.StatusInternalServerError)
				return
			}
			jsonBytes, err := json.Marshal(v)
			if err != nil {
				w.WriteHeader(stdhttp.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Write(jsonBytes)
		})
		mux.HandleFunc("/docs", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			// Simple Swagger UI (CDN)
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(`<!DOCTYPE html><html><head><title>API Docs</title><link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css"/></head><body><div id="swagger-ui"></div><script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script><script>window.onload=()=>{SwaggerUIBundle({url:'/openapi.yaml',dom_id:'#swagger-ui'});};</script></body></html>`))
		})
	}

	protect := middleware.BearerAuth(cfg.TokenValidator)
	optional := middleware.OptionalAuth(cfg.TokenValidator)

	// --- Auth routes ---
	mux.HandleFunc("/api/auth/", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		segments := splitSegments(strings.TrimPrefix(r.URL.Path, "/api/auth"))
		if len(segments) != 1 {
			w.WriteHeader(stdhttp.StatusNotFound)
			return
		}
		switch {
		case segments[0] == "register" && r.Method == stdhttp.MethodPost:
			cfg.AuthCtrl.Register(w, r)
		case segments[0] == "login" && r.Method == stdhttp.MethodPost:
			cfg.AuthCtrl.Login(w, r)
		case segments[0] == "refresh" && r.Method == stdhttp.MethodGet:
			cfg.AuthCtrl.Refresh(w, r)
		case segments[0] == "logout" && r.Method == stdhttp.MethodPost:
			cfg.AuthCtrl.Logout(w, r)
		default:
			w.WriteHeader(stdhttp.StatusMethodNotAllowed)
		}
	})

	// --- User routes ---
	userMux := stdhttp.NewServeMux()
	userMux.HandleFunc("/api/user", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if r.Method == stdhttp.MethodGet {
			cfg.UserCtrl.List(w, r)
			return
		}
		w.WriteHeader(stdhttp.StatusMethodNotAllowed)
	})
	userMux.Handle("/api/user/edit", protect(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if r.Method == stdhttp.MethodPut {
			cfg.UserCtrl.Edit(w, r)
			return
		}
		w.WriteHeader(stdhttp.StatusMethodNotAllowed)
	})))
	userMux.Handle("/api/user/edit/profilePicture", protect(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		switch r.Method {
		case stdhttp.MethodPut:
			cfg.UserCtrl.EditProfilePicture(w, r)
		case stdhttp.MethodDelete:
			cfg.UserCtrl.RemoveProfilePicture(w, r)
		default:
			w.WriteHeader(stdhttp.StatusMethodNotAllowed)
		}
	})))
	userMux.Handle("/api/user/", optional(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		segments := splitSegments(strings.TrimPrefix(r.URL.Path, "/api/user"))
		switch len(segments) {
		case 1:
			switch {
			case segments[0] == "find" && r.Method == stdhttp.MethodGet:
				cfg.UserCtrl.Search(w, r)
			case r.Method == stdhttp.MethodGet:
				cfg.UserCtrl.Profile(w, r, segments[0])
			default:
				w.WriteHeader(stdhttp.StatusMethodNotAllowed)
			}
		case 2:
			switch {
			case segments[1] == "followers" && r.Method == stdhttp.MethodGet:
				cfg.UserCtrl.Followers(w, r, segments[0])
			case segments[1] == "followings" && r.Method == stdhttp.MethodGet:
				cfg.UserCtrl.Followings(w, r, segments[0])
			case segments[1] == "follow" && r.Method == stdhttp.MethodPatch:
				requireAuth(w, r, func() { cfg.UserCtrl.Follow(w, r, segments[0]) })
			case segments[1] == "unfollow" && r.Method == stdhttp.MethodPatch:
				requireAuth(w, r, func() { cfg.UserCtrl.Unfollow(w, r, segments[0]) })
			default:
				w.WriteHeader(stdhttp.StatusMethodNotAllowed)
			}
		default:
			w.WriteHeader(stdhttp.StatusNotFound)
		}
	})))
	mux.Handle("/api/user", userMux)
	mux.Handle("/api/user/", userMux)

	// --- Post routes ---
	postMux := stdhttp.NewServeMux()
	postMux.HandleFunc("/api/post", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		switch r.Method {
		case stdhttp.MethodGet:
			cfg.PostCtrl.Feed(w, r)
		case stdhttp.MethodPost:
			protect(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
				cfg.PostCtrl.Upload(w, r)
			})).ServeHTTP(w, r)
		default:
			w.WriteHeader(stdhttp.StatusMethodNotAllowed)
		}
	})
	postMux.Handle("/api/post/postfollowing", protect(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if r.Method == stdhttp.MethodGet {
			cfg.PostCtrl.FollowingFeed(w, r)
			return
		}
		w.WriteHeader(stdhttp.StatusMethodNotAllowed)
	})))
	postMux.Handle("/api/post/saved", protect(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if r.Method == stdhttp.MethodGet {
			cfg.PostCtrl.Saved(w, r)
			return
		}
		w.WriteHeader(stdhttp.StatusMethodNotAllowed)
	})))
	postMux.Handle("/api/post/", optional(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		segments := splitSegments(strings.TrimPrefix(r.URL.Path, "/api/post"))
		switch len(segments) {
		case 1:
			switch r.Method {
			case stdhttp.MethodGet:
				cfg.PostCtrl.Detail(w, r, segments[0])
			case stdhttp.MethodDelete:
				requireAuth(w, r, func() { cfg.PostCtrl.Delete(w, r, segments[0]) })
			default:
				w.WriteHeader(stdhttp.StatusMethodNotAllowed)
			}
		case 2:
			if r.Method != stdhttp.MethodPatch {
				w.WriteHeader(stdhttp.StatusMethodNotAllowed)
				return
			}
			switch segments[1] {
			case "likeandunlike":
				requireAuth(w, r, func() { cfg.PostCtrl.LikeToggle(w, r, segments[0]) })
			case "saveandunsave":
				requireAuth(w, r, func() { cfg.PostCtrl.SaveToggle(w, r, segments[0]) })
			case "addcomment":
				requireAuth(w, r, func() { cfg.PostCtrl.AddComment(w, r, segments[0]) })
			default:
				w.WriteHeader(stdhttp.StatusNotFound)
			}
		default:
			w.WriteHeader(stdhttp.StatusNotFound)
		}
	})))
	mux.Handle("/api/post", postMux)
	mux.Handle("/api/post/", postMux)

	// --- Conversation routes (reads public, writes protected) ---
	conversationMux := stdhttp.NewServeMux()
	conversationMux.HandleFunc("/api/conversation", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		switch r.Method {
		case stdhttp.MethodGet:
			cfg.ConversationCtrl.List(w, r)
		case stdhttp.MethodPost:
			requireAuth(w, r, func() { cfg.ConversationCtrl.Create(w, r) })
		default:
			w.WriteHeader(stdhttp.StatusMethodNotAllowed)
		}
	})
	conversationMux.HandleFunc("/api/conversation/", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		segments := splitSegments(strings.TrimPrefix(r.URL.Path, "/api/conversation"))
		if len(segments) != 1 {
			w.WriteHeader(stdhttp.StatusNotFound)
			return
		}
		switch {
		case segments[0] == "user" && r.Method == stdhttp.MethodGet:
			requireAuth(w, r, func() { cfg.ConversationCtrl.ListForUser(w, r) })
		case segments[0] == "members" && r.Method == stdhttp.MethodGet:
			requireAuth(w, r, func() { cfg.ConversationCtrl.GetByMembers(w, r) })
		case r.Method == stdhttp.MethodGet:
			cfg.ConversationCtrl.Get(w, r, segments[0])
		case r.Method == stdhttp.MethodPut:
			requireAuth(w, r, func() { cfg.ConversationCtrl.SendMessage(w, r, segments[0]) })
		case r.Method == stdhttp.MethodDelete:
			requireAuth(w, r, func() { cfg.ConversationCtrl.Leave(w, r, segments[0]) })
		default:
			w.WriteHeader(stdhttp.StatusMethodNotAllowed)
		}
	})
	optionalConversations := optional(conversationMux)
	mux.Handle("/api/conversation", optionalConversations)
	mux.Handle("/api/conversation/", optionalConversations)

	// --- Realtime ---
	if cfg.Gateway != nil {
		mux.HandleFunc("/ws", cfg.Gateway.HandleWS)
	}

	// --- Static uploads (local storage) ---
	if cfg.StaticDir != "" {
		fs := stdhttp.FileServer(stdhttp.Dir(cfg.StaticDir))
		mux.Handle("/public/", stdhttp.StripPrefix("/public/", fs))
	}

	// Middlewares wrap
	var handler stdhttp.Handler = mux
	handler = middleware.Logging(cfg.Logger)(handler)
	handler = middleware.CORS(handler) // Apply CORS to all routes
	return handler
}

// requireAuth runs next only when the middleware resolved a requester.
func requireAuth(w stdhttp.ResponseWriter, r *stdhttp.Request, next func()) {
	if middleware.RequesterID(r.Context()) == "" {
		w.WriteHeader(stdhttp.StatusUnauthorized)
		return
	}
	next()
}
