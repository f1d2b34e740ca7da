package client

import (
	"context"

	"google.golang.org/grpc"

	"distorage/internal/rpcproto"
)

// Ping probes the remote node's client listener.
func Ping(ctx context.Context, conn *grpc.ClientConn) (bool, string, error) {
	resp, err := rpcproto.CallPing(ctx, conn)
	if err != nil {
		return false, "", normalizeErr(conn.Target(), err)
	}
	return resp.Ok, resp.Msg, nil
}

// AvailableServers lists the remote node's own address plus its known peers.
func AvailableServers(ctx context.Context, conn *grpc.ClientConn) ([]string, error) {
	resp, err := rpcproto.CallAvailableServers(ctx, conn)
	if err != nil {
		return nil, normalizeErr(conn.Target(), err)
	}
	return resp.Servers, nil
}

// RegisterAccount creates a new user account, per spec §4.6 "register".
func RegisterAccount(ctx context.Context, conn *grpc.ClientConn, username, password string) (bool, string, error) {
	resp, err := rpcproto.CallClientRegister(ctx, conn, &rpcproto.RegisterClientRequest{Username: username, Password: password})
	if err != nil {
		return false, "", normalizeErr(conn.Target(), err)
	}
	return resp.Ok, resp.Msg, nil
}

// Login verifies a username/password pair, per spec §4.6 "login".
func Login(ctx context.Context, conn *grpc.ClientConn, username, password string) (bool, string, error) {
	resp, err := rpcproto.CallClientLogin(ctx, conn, &rpcproto.LoginRequest{Username: username, Password: password})
	if err != nil {
		return false, "", normalizeErr(conn.Target(), err)
	}
	return resp.Ok, resp.Msg, nil
}

// Upload stores bytes under sysPath in the given account, per spec §4.6
// "upload".
func Upload(ctx context.Context, conn *grpc.ClientConn, username, sysPath string, bytes []byte) (bool, string, error) {
	resp, err := rpcproto.CallUpload(ctx, conn, &rpcproto.UploadRequest{Username: username, SysPath: sysPath, Bytes: bytes})
	if err != nil {
		return false, "", normalizeErr(conn.Target(), err)
	}
	return resp.Ok, resp.Msg, nil
}

// Download retrieves the bytes stored under sysPath, per spec §4.6
// "download".
func Download(ctx context.Context, conn *grpc.ClientConn, username, sysPath string) ([]byte, bool, string, error) {
	resp, err := rpcproto.CallDownload(ctx, conn, &rpcproto.DownloadRequest{Username: username, SysPath: sysPath})
	if err != nil {
		return nil, false, "", normalizeErr(conn.Target(), err)
	}
	return resp.Bytes, resp.Ok, resp.Msg, nil
}

// DeleteFile removes sysPath from the account and its backing content, per
// spec §4.6 "delete".
func DeleteFile(ctx context.Context, conn *grpc.ClientConn, username, sysPath string) (bool, string, error) {
	resp, err := rpcproto.CallDeleteFile(ctx, conn, &rpcproto.DeleteFileRequest{Username: username, SysPath: sysPath})
	if err != nil {
		return false, "", normalizeErr(conn.Target(), err)
	}
	return resp.Ok, resp.Msg, nil
}

// ListFiles returns the account's current file list, per spec §4.6
// "list_files".
func ListFiles(ctx context.Context, conn *grpc.ClientConn, username string) ([]string, bool, string, error) {
	resp, err := rpcproto.CallListFiles(ctx, conn, &rpcproto.ListFilesRequest{Username: username})
	if err != nil {
		return nil, false, "", normalizeErr(conn.Target(), err)
	}
	return resp.Files, resp.Ok, resp.Msg, nil
}
