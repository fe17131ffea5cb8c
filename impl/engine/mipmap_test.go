package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/aceeric/imgcache/impl/bitmap"
	"github.com/aceeric/imgcache/impl/keys"
	"github.com/aceeric/imgcache/impl/memcache"
	"github.com/aceeric/imgcache/impl/request"
	"github.com/aceeric/imgcache/mock"
)

func TestMipmapStates(t *testing.T) {
	tests := []struct {
		state mipmapState
		name  string
	}{
		{checkMemory, "CheckMemory"},
		{checkDiskFile, "CheckDiskFile"},
		{downloading, "Downloading"},
		{decoded, "Decoded"},
	}
	for _, tst := range tests {
		if tst.state.String() != tst.name {
			t.Fail()
		}
	}
}

// Downloading streams to disk and decodes a sampled tile. A second engine sharing the
// disk decodes from the disk file without fetching, and a repeat on the first engine
// is a memory hit.
func TestMipmap(t *testing.T) {
	server, url := mock.Server(mock.NewMockParams(mock.NONE, mock.HTTP))
	defer server.Close()
	disk, d := newDisk(t)
	defer os.RemoveAll(d)
	uri := fmt.Sprintf("http://%s/img/big.png?w=600&h=300", url)

	tr1 := newTransport()
	mc, _ := memcache.New(10)
	e1, err := New(Opts{Memory: mc, Disk: disk, Transport: tr1, MipmapMaxSize: 200})
	if err != nil {
		t.FailNow()
	}
	req, err := request.Load(uri).Mipmap().Build()
	res := mustLoad(t, e1, req, err)
	info, err := res.Wait(context.Background())
	if err != nil || !info.Mipmap || info.Origin != bitmap.FromNetwork {
		t.FailNow()
	}
	if info.Bounds().Dx() != 200 || info.Bounds().Dy() != 100 {
		t.Fail()
	}
	e1.Wait()
	if !disk.ContainsKey(res.Keys().Download) {
		t.FailNow()
	}
	// the staged file is the full resolution asset
	if path, ok := disk.GetFile(res.Keys().Download, 0); !ok || info.SourceFile != path {
		t.Fail()
	}

	tr2 := newTransport()
	e2, _ := New(Opts{Disk: disk, Transport: tr2, MipmapMaxSize: 200})
	info, err = mustLoad(t, e2, req, nil).Wait(context.Background())
	if err != nil || info.Origin != bitmap.FromDisk || !info.Mipmap || tr2.fetches.Load() != 0 {
		t.Fail()
	}

	res = mustLoad(t, e1, req, nil)
	info, err = res.Wait(context.Background())
	if err != nil || info.Origin != bitmap.FromMemory || tr1.fetches.Load() != 1 {
		t.Fail()
	}
}

// The mipmap key differs from the plain download key for the same uri
func TestMipmapKeySeparation(t *testing.T) {
	plain, _ := request.Load("http://x/a.png").Build()
	mip, _ := request.Load("http://x/a.png").Mipmap().Build()
	if keys.Derive(plain).Download == keys.Derive(mip).Download {
		t.Fail()
	}
}

// CheckDiskFile removes a staged file that does not decode and goes on to download
func TestMipmapCorruptDiskFile(t *testing.T) {
	server, url := mock.Server(mock.NewMockParams(mock.NONE, mock.HTTP))
	defer server.Close()
	disk, d := newDisk(t)
	defer os.RemoveAll(d)
	tr := newTransport()
	e, err := New(Opts{Disk: disk, Transport: tr, MipmapMaxSize: 200})
	if err != nil {
		t.FailNow()
	}
	req, err := request.Load(fmt.Sprintf("http://%s/img/big.png?w=600&h=300", url)).Mipmap().Build()
	if err != nil {
		t.FailNow()
	}
	if _, err := disk.Put(keys.Derive(req).Download, 0, strings.NewReader("not an image")); err != nil {
		t.FailNow()
	}
	info, err := mustLoad(t, e, req, nil).Wait(context.Background())
	if err != nil || info.Origin != bitmap.FromNetwork || info.Bounds().Dx() != 200 {
		t.FailNow()
	}
	if tr.fetches.Load() != 1 {
		t.Fail()
	}
}
