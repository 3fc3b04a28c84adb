package web

import (
	"bytes"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mogaika/xray_motion_browser/pack/xray/envelope"
	"github.com/mogaika/xray_motion_browser/pack/xray/motion"
	"github.com/mogaika/xray_motion_browser/webutils"
)

func baseName(file string) string {
	return strings.TrimSuffix(file, filepath.Ext(file))
}

func getMotionFile(w http.ResponseWriter, r *http.Request) (*MotionFile, bool) {
	file := mux.Vars(r)["file"]
	f, err := ServerLibrary.Get(file)
	if err != nil {
		log.Printf("[web] Error getting motion file %q: %v", file, err)
		webutils.WriteError(w, err)
		return nil, false
	}
	return f, true
}

func HandlerAjaxMotions(w http.ResponseWriter, r *http.Request) {
	if files, err := ServerLibrary.List(); err != nil {
		webutils.WriteError(w, err)
	} else {
		webutils.WriteJson(w, files)
	}
}

func HandlerAjaxMotionFile(w http.ResponseWriter, r *http.Request) {
	if f, ok := getMotionFile(w, r); ok {
		webutils.WriteJson(w, f)
	}
}

func HandlerDumpMotionFile(w http.ResponseWriter, r *http.Request) {
	if f, ok := getMotionFile(w, r); ok {
		webutils.WriteDump(w, f)
	}
}

func HandlerYamlMotionFile(w http.ResponseWriter, r *http.Request) {
	if f, ok := getMotionFile(w, r); ok {
		webutils.WriteYamlFile(w, f.Motions, baseName(f.Name))
	}
}

func HandlerGLTFMotionFile(w http.ResponseWriter, r *http.Request) {
	f, ok := getMotionFile(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := motion.ExportGLTF(&buf, f.Motions, ServerLibrary.Opts); err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, &buf, baseName(f.Name)+".glb")
}

func writeSkls(w http.ResponseWriter, motions []*motion.Motion, name string) {
	diag := envelope.NewDiagnostics()
	data, err := motion.MarshalSkls(motions, ServerLibrary.Opts, diag)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	for _, d := range diag.List {
		log.Printf("[web] %s: %v", name, d)
	}
	webutils.WriteFile(w, bytes.NewReader(data), name+".skls")
}

func HandlerSklsMotionFile(w http.ResponseWriter, r *http.Request) {
	if f, ok := getMotionFile(w, r); ok {
		writeSkls(w, f.Motions, baseName(f.Name))
	}
}

// HandlerUploadMotions encodes motions posted as json file (see /json/motion) into .skls
func HandlerUploadMotions(w http.ResponseWriter, r *http.Request) {
	var f MotionFile
	if err := webutils.ReadJsonFile(r, "data", &f); err != nil {
		webutils.WriteError(w, err)
		return
	}
	name := baseName(f.Name)
	if name == "" {
		name = "motions"
	}
	writeSkls(w, f.Motions, name)
}

func HandlerStatus(w http.ResponseWriter, r *http.Request) {
	if ServerLibrary.Status == nil {
		http.NotFound(w, r)
		return
	}
	ServerLibrary.Status.ServeHTTP(w, r)
}
