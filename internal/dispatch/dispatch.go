// Package dispatch translates the client-facing RPC surface (spec §4.6)
// into operations against the two Chord rings, grounded on the teacher's
// node/operation.go Put/Get/Delete shape.
package dispatch

import (
	"context"
	"fmt"

	"distorage/internal/auth"
	"distorage/internal/domain"
	"distorage/internal/logger"
	"distorage/internal/peer"
	"distorage/internal/rpcproto"
)

// Dispatch implements rpcproto.ClientServer on top of a peer.Manager's two
// ring nodes.
type Dispatch struct {
	lgr logger.Logger
	mgr *peer.Manager
}

// New builds a Dispatch bound to mgr's clients and data rings.
func New(mgr *peer.Manager, lgr logger.Logger) *Dispatch {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	return &Dispatch{lgr: lgr, mgr: mgr}
}

func dataKey(username, sysPath string) string {
	return fmt.Sprintf("%s:%s", username, sysPath)
}

func persistPath(username, sysPath string) string {
	return fmt.Sprintf("%s/%s", username, sysPath)
}

func (d *Dispatch) lookupAccount(ctx context.Context, username string) (account, bool, error) {
	val, ok, _, err := d.mgr.RingFor(domain.RingClients).Find(ctx, username, false)
	if err != nil || !ok {
		return account{}, false, err
	}
	acc, err := decodeAccount(val.Bytes)
	if err != nil {
		return account{}, false, err
	}
	return acc, true, nil
}

// Ping answers the client liveness probe.
func (d *Dispatch) Ping(ctx context.Context, req *rpcproto.Empty) (*rpcproto.Response, error) {
	return &rpcproto.Response{Ok: true, Msg: "pong"}, nil
}

// AvailableServers lists this peer's own address plus every known peer.
func (d *Dispatch) AvailableServers(ctx context.Context, req *rpcproto.Empty) (*rpcproto.AvailableServersResponse, error) {
	servers := append([]string{d.mgr.SelfIP()}, d.mgr.KnownPeers()...)
	return &rpcproto.AvailableServersResponse{Servers: servers}, nil
}

// Register implements spec §4.6 "register(name, pw)": stores a fresh
// account record, refusing to overwrite an existing one.
func (d *Dispatch) Register(ctx context.Context, req *rpcproto.RegisterClientRequest) (*rpcproto.Response, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return &rpcproto.Response{Ok: false, Msg: "failed to hash password"}, nil
	}
	acc := account{PwHash: hash, Files: []string{}}
	raw, err := encodeAccount(acc)
	if err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	value := domain.Value{Kind: domain.KindJSON, Bytes: raw}
	ok, msg, err := d.mgr.RingFor(domain.RingClients).Store(ctx, req.Username, value, false, true, "")
	if err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	if !ok {
		return &rpcproto.Response{Ok: false, Msg: "username already taken"}, nil
	}
	return &rpcproto.Response{Ok: true, Msg: msg}, nil
}

// Login implements spec §4.6 "login(name, pw)".
func (d *Dispatch) Login(ctx context.Context, req *rpcproto.LoginRequest) (*rpcproto.Response, error) {
	acc, ok, err := d.lookupAccount(ctx, req.Username)
	if err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	if !ok {
		return &rpcproto.Response{Ok: false, Msg: "unknown user"}, nil
	}
	if !auth.VerifyPassword(req.Password, acc.PwHash) {
		return &rpcproto.Response{Ok: false, Msg: "bad password"}, nil
	}
	return &rpcproto.Response{Ok: true, Msg: "ok"}, nil
}

// Upload implements spec §4.6 "upload(name, sys_path, bytes)": the account
// file list is updated first, then the bytes are stored on the data ring
// under "<name>:<sys_path>" with persist_path "<name>/<sys_path>".
func (d *Dispatch) Upload(ctx context.Context, req *rpcproto.UploadRequest) (*rpcproto.Response, error) {
	acc, ok, err := d.lookupAccount(ctx, req.Username)
	if err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	if !ok {
		return &rpcproto.Response{Ok: false, Msg: "unknown user"}, nil
	}
	if !containsFile(acc.Files, req.SysPath) {
		acc.Files = append(acc.Files, req.SysPath)
		raw, err := encodeAccount(acc)
		if err != nil {
			return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
		}
		value := domain.Value{Kind: domain.KindJSON, Bytes: raw}
		if _, msg, err := d.mgr.RingFor(domain.RingClients).Store(ctx, req.Username, value, true, true, ""); err != nil {
			return &rpcproto.Response{Ok: false, Msg: msg}, nil
		}
	}

	value := domain.Value{Kind: domain.KindBytes, Bytes: req.Bytes}
	ok, msg, err := d.mgr.RingFor(domain.RingData).Store(
		ctx, dataKey(req.Username, req.SysPath), value, true, false,
		persistPath(req.Username, req.SysPath),
	)
	if err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	return &rpcproto.Response{Ok: ok, Msg: msg}, nil
}

// Download implements spec §4.6 "download(name, sys_path)": verifies
// account membership before reading the file's bytes off the data ring.
func (d *Dispatch) Download(ctx context.Context, req *rpcproto.DownloadRequest) (*rpcproto.DownloadResponse, error) {
	acc, ok, err := d.lookupAccount(ctx, req.Username)
	if err != nil {
		return &rpcproto.DownloadResponse{Ok: false, Msg: err.Error()}, nil
	}
	if !ok {
		return &rpcproto.DownloadResponse{Ok: false, Msg: "unknown user"}, nil
	}
	if !containsFile(acc.Files, req.SysPath) {
		return &rpcproto.DownloadResponse{Ok: false, Msg: "file not found"}, nil
	}
	val, ok, msg, err := d.mgr.RingFor(domain.RingData).Find(ctx, dataKey(req.Username, req.SysPath), true)
	if err != nil {
		return &rpcproto.DownloadResponse{Ok: false, Msg: err.Error()}, nil
	}
	if !ok {
		return &rpcproto.DownloadResponse{Ok: false, Msg: msg}, nil
	}
	return &rpcproto.DownloadResponse{Bytes: val.Bytes, Ok: true}, nil
}

// Delete implements spec §4.6 "delete": drops the file from the account
// list, then removes it from the data ring.
func (d *Dispatch) Delete(ctx context.Context, req *rpcproto.DeleteFileRequest) (*rpcproto.Response, error) {
	acc, ok, err := d.lookupAccount(ctx, req.Username)
	if err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	if !ok {
		return &rpcproto.Response{Ok: false, Msg: "unknown user"}, nil
	}
	if !containsFile(acc.Files, req.SysPath) {
		return &rpcproto.Response{Ok: false, Msg: "file not found"}, nil
	}
	acc.Files = removeFile(acc.Files, req.SysPath)
	raw, err := encodeAccount(acc)
	if err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	value := domain.Value{Kind: domain.KindJSON, Bytes: raw}
	if _, msg, err := d.mgr.RingFor(domain.RingClients).Store(ctx, req.Username, value, true, true, ""); err != nil {
		return &rpcproto.Response{Ok: false, Msg: msg}, nil
	}
	ok, msg, err := d.mgr.RingFor(domain.RingData).Remove(ctx, dataKey(req.Username, req.SysPath))
	if err != nil {
		return &rpcproto.Response{Ok: false, Msg: err.Error()}, nil
	}
	return &rpcproto.Response{Ok: ok, Msg: msg}, nil
}

// ListFiles implements spec §4.6 "list_files".
func (d *Dispatch) ListFiles(ctx context.Context, req *rpcproto.ListFilesRequest) (*rpcproto.ListFilesResponse, error) {
	acc, ok, err := d.lookupAccount(ctx, req.Username)
	if err != nil {
		return &rpcproto.ListFilesResponse{Ok: false, Msg: err.Error()}, nil
	}
	if !ok {
		return &rpcproto.ListFilesResponse{Ok: false, Msg: "unknown user"}, nil
	}
	return &rpcproto.ListFilesResponse{Files: acc.Files, Ok: true}, nil
}
