package images

import (
	"io/ioutil"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	httputil "github.com/tradepost/funcircle/pkg/http"
	"github.com/tradepost/funcircle/pkg/http/middlewares"
)

// MaxUploadSize bounds a single upload.
const MaxUploadSize = 10 << 20

type Endpoint struct {
	backend *Backend
	auth    *middlewares.AuthenticationHandler
}

func NewEndpoint(backend *Backend, auth *middlewares.AuthenticationHandler) *Endpoint {
	return &Endpoint{
		backend: backend,
		auth:    auth,
	}
}

func (e *Endpoint) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", e.upload).Methods("POST")

	r.Use(e.auth.Middleware)

	return r
}

// upload stores the multipart "image" as png and returns the reference to
// pass when posting a story.
func (e *Endpoint) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

	err := r.ParseMultipartForm(MaxUploadSize)
	if err != nil {
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeInvalidRequestBody, "invalid request body")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeInvalidRequestBody, "missing image")
		return
	}

	defer file.Close()

	data, err := ioutil.ReadAll(file)
	if err != nil {
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeInvalidRequestBody, "invalid image")
		return
	}

	image, err := ToPNG(data)
	if err != nil {
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeInvalidRequestBody, "unsupported image")
		return
	}

	name, err := e.backend.Store(image)
	if err != nil {
		log.Printf("images.Store err: %v\n", err)
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInternal, "failed to store image")
		return
	}

	err = httputil.JsonEncodeStatus(w, http.StatusCreated, map[string]string{"url": e.backend.URL(name)})
	if err != nil {
		log.Printf("failed to write upload response: %s\n", err.Error())
	}
}
