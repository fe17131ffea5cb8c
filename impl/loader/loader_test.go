package loader

import (
	"context"
	"encoding/base64"
	"errors"
	"image/color"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/aceeric/imgcache/impl/bitmap"
	"github.com/aceeric/imgcache/impl/future"
	"github.com/aceeric/imgcache/mock"
)

func TestChainOrder(t *testing.T) {
	var calls []string
	named := func(name string, claim bool) Loader {
		return Func(func(context.Context, string, int, int) *future.Future[bitmap.Info] {
			calls = append(calls, name)
			if !claim {
				return nil
			}
			return future.Completed(bitmap.Info{Key: name}, nil)
		})
	}
	c := Chain{named("a", false), named("b", true), named("c", true)}
	info, err, settled := c.LoadBitmap(context.Background(), "x://y", 0, 0).Result()
	if !settled || err != nil || info.Key != "b" {
		t.FailNow()
	}
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Fail()
	}
	if (Chain{named("z", false)}).LoadBitmap(context.Background(), "x://y", 0, 0) != nil {
		t.Fail()
	}
}

func TestFile(t *testing.T) {
	td, err := os.MkdirTemp("", "")
	if err != nil {
		t.FailNow()
	}
	defer os.RemoveAll(td)
	p := filepath.Join(td, "an image.png")
	os.WriteFile(p, mock.PNG(12, 8, color.White), 0644)
	f := File{}.LoadBitmap(context.Background(), "file://"+url.PathEscape(p), 0, 0)
	if f == nil {
		t.FailNow()
	}
	info, err := f.Get(context.Background())
	if err != nil || info.Bounds().Dx() != 12 {
		t.Fail()
	}
	if (File{}).LoadBitmap(context.Background(), "http://foo/bar.png", 0, 0) != nil {
		t.Fail()
	}
	_, err = File{}.LoadBitmap(context.Background(), "file:///does/not/exist.png", 0, 0).Get(context.Background())
	if err == nil {
		t.Fail()
	}
}

func TestFileRoot(t *testing.T) {
	td, err := os.MkdirTemp("", "")
	if err != nil {
		t.FailNow()
	}
	defer os.RemoveAll(td)
	root := filepath.Join(td, "root")
	os.Mkdir(root, 0755)
	os.WriteFile(filepath.Join(root, "in.png"), mock.PNG(3, 3, color.White), 0644)
	os.WriteFile(filepath.Join(td, "out.png"), mock.PNG(3, 3, color.White), 0644)
	os.Symlink(filepath.Join(td, "out.png"), filepath.Join(root, "link.png"))

	l := File{Root: root}
	if info, err := l.LoadBitmap(context.Background(), "file://"+filepath.Join(root, "in.png"), 0, 0).Get(context.Background()); err != nil || info.Bounds().Dx() != 3 {
		t.FailNow()
	}
	for _, path := range []string{
		filepath.Join(td, "out.png"),
		root + "/../out.png",
		filepath.Join(root, "link.png"),
		"/etc/passwd",
		"/no/such/file.png",
		"relative.png",
	} {
		_, err := l.LoadBitmap(context.Background(), "file://"+path, 0, 0).Get(context.Background())
		if !errors.Is(err, ErrNotPermitted) {
			t.Errorf("%s: %v", path, err)
		}
	}
	// a missing file under the root is just missing
	_, err = l.LoadBitmap(context.Background(), "file://"+filepath.Join(root, "nope.png"), 0, 0).Get(context.Background())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fail()
	}
}

func TestServed(t *testing.T) {
	_, err := Served("").LoadBitmap(context.Background(), "file:///etc/passwd", 0, 0).Get(context.Background())
	if !errors.Is(err, ErrNotPermitted) {
		t.Fail()
	}
	if Served("").LoadBitmap(context.Background(), "http://foo/a.png", 0, 0) != nil {
		t.Fail()
	}
	if _, ok := Served("/srv/images")[0].(File); !ok {
		t.Fail()
	}
}

func TestData(t *testing.T) {
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(mock.PNG(5, 4, color.Black))
	info, err, _ := Data{}.LoadBitmap(context.Background(), uri, 0, 0).Result()
	if err != nil || info.Bounds().Dx() != 5 {
		t.Fail()
	}
	if _, err, _ := (Data{}).LoadBitmap(context.Background(), "data:image/png;base64", 0, 0).Result(); err == nil {
		t.Fail()
	}
}

func TestResident(t *testing.T) {
	r := NewResident()
	uri := r.Register("a", mock.PNG(100, 100, color.White))
	if uri != "mem://a" {
		t.FailNow()
	}
	info, err, _ := Default(r).LoadBitmap(context.Background(), uri, 0, 0).Result()
	if err != nil || info.Bounds().Dx() != 100 {
		t.Fail()
	}
	r.Unregister("a")
	if _, err, _ := r.LoadBitmap(context.Background(), uri, 0, 0).Result(); err == nil {
		t.Fail()
	}
}
