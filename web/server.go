package web

import (
	"log"
	"net/http"
	"os"
	"path"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

var ServerLibrary *Library

func NewRouter(webPath string) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/json/motions", HandlerAjaxMotions)
	r.HandleFunc("/json/motion/{file}", HandlerAjaxMotionFile)
	r.HandleFunc("/dump/motion/{file}", HandlerDumpMotionFile)
	r.HandleFunc("/gltf/motion/{file}", HandlerGLTFMotionFile)
	r.HandleFunc("/skls/motion/{file}", HandlerSklsMotionFile)
	r.HandleFunc("/yaml/motion/{file}", HandlerYamlMotionFile)
	r.HandleFunc("/upload/motions", HandlerUploadMotions).Methods("POST")
	r.HandleFunc("/ws/status", HandlerStatus)

	if webPath != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(path.Join(webPath, "data"))))
	}
	return r
}

func StartServer(addr string, l *Library, webPath string) error {
	ServerLibrary = l

	var h http.Handler = NewRouter(webPath)
	h = handlers.RecoveryHandler()(h)
	h = handlers.LoggingHandler(os.Stdout, h)

	log.Printf("[web] Starting server %v, motions from %q", addr, l.Dir)

	return http.ListenAndServe(addr, h)
}
