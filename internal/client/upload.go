package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/jhoicas/sgidt-documentos/internal/application/dto"
	"github.com/jhoicas/sgidt-documentos/internal/domain/entity"
)

// UploadFile archivo a cargar. Open se llama solo si el archivo pasa la validación.
type UploadFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FileFromPath arma un UploadFile desde disco.
func FileFromPath(path string) (UploadFile, error) {
	st, err := os.Stat(path)
	if err != nil {
		return UploadFile{}, err
	}
	if st.IsDir() {
		return UploadFile{}, fmt.Errorf("%s es un directorio", path)
	}
	return UploadFile{
		Name: filepath.Base(path),
		Size: st.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// Check valida extensión (.pdf .jpg .jpeg .png) y tamaño (10 MB) sin tocar la red.
func (f UploadFile) Check() error {
	return entity.CheckUpload(f.Name, f.Size)
}

// Progress recibe los bytes enviados del cuerpo multipart y su total.
type Progress func(sent, total int64)

// Upload envía los archivos en files[]. El llamador ya filtró con Check.
// Con respuesta no 2xx devuelve el resultado con el cuerpo como error y un *HTTPError.
func (c *Client) Upload(ctx context.Context, files []UploadFile, progress Progress) (*dto.UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		if err := addFile(mw, f); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	body := &progressReader{r: bytes.NewReader(buf.Bytes()), total: int64(buf.Len()), fn: progress}
	resp, err := c.do(ctx, http.MethodPost, documentosPath, body, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		msg := err.Error()
		return &dto.UploadResult{Errors: []string{msg}}, err
	}
	var out dto.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return nil, fmt.Errorf("client: decodificar carga: %w", err)
	}
	body.finish()
	return &out, nil
}

func addFile(mw *multipart.Writer, f UploadFile) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("abrir %s: %w", f.Name, err)
	}
	defer rc.Close()
	w, err := mw.CreateFormFile("files[]", f.Name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("leer %s: %w", f.Name, err)
	}
	return nil
}

// progressReader informa los bytes leídos por el transporte.
type progressReader struct {
	r     *bytes.Reader
	total int64

	mu   sync.Mutex
	sent int64
	fn   Progress
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.sent += int64(n)
		sent := p.sent
		p.mu.Unlock()
		if p.fn != nil {
			p.fn(sent, p.total)
		}
	}
	return n, err
}

func (p *progressReader) Size() int64 { return p.total }

// finish reporta el 100 % aunque el transporte no haya llamado Read hasta EOF.
func (p *progressReader) finish() {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	done := p.sent >= p.total
	p.mu.Unlock()
	if !done {
		p.fn(p.total, p.total)
	}
}
