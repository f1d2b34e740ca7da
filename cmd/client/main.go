package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/peterh/liner"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"distorage/internal/client"
	"distorage/internal/rpcproto"
)

func connect(addr string) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		rpcproto.DialOption(),
	)
}

func main() {
	addr := flag.String("addr", "127.0.0.1:6000", "address of a distorage client listener")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	conn, err := connect(*addr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *addr, err)
	}
	defer conn.Close()

	currentAddr := *addr
	username := ""
	fmt.Printf("distorage interactive client. Connected to %s\n", currentAddr)
	fmt.Println("Available commands: register/login/upload/download/delete/list/servers/ping/use/exit")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		prompt := fmt.Sprintf("distorage[%s]> ", currentAddr)
		if username != "" {
			prompt = fmt.Sprintf("distorage[%s:%s]> ", currentAddr, username)
		}
		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println("Aborted")
				continue
			}
			break
		}
		line.AppendHistory(input)

		args := strings.Fields(strings.TrimSpace(input))
		if len(args) == 0 {
			continue
		}
		cmd := args[0]

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)

		switch cmd {

		case "register":
			if len(args) < 3 {
				fmt.Println("Usage: register <username> <password>")
				cancel()
				continue
			}
			ok, msg, err := client.RegisterAccount(ctx, conn, args[1], args[2])
			printResult("Register", ok, msg, err)
			if ok {
				username = args[1]
			}

		case "login":
			if len(args) < 3 {
				fmt.Println("Usage: login <username> <password>")
				cancel()
				continue
			}
			ok, msg, err := client.Login(ctx, conn, args[1], args[2])
			printResult("Login", ok, msg, err)
			if ok {
				username = args[1]
			}

		case "upload":
			if len(args) < 3 || username == "" {
				fmt.Println("Usage: upload <sys_path> <local_file> (must be logged in)")
				cancel()
				continue
			}
			data, err := os.ReadFile(args[2])
			if err != nil {
				fmt.Printf("failed to read local file %s: %v\n", args[2], err)
				cancel()
				continue
			}
			ok, msg, err := client.Upload(ctx, conn, username, args[1], data)
			printResult("Upload", ok, msg, err)

		case "download":
			if len(args) < 3 || username == "" {
				fmt.Println("Usage: download <sys_path> <local_file> (must be logged in)")
				cancel()
				continue
			}
			data, ok, msg, err := client.Download(ctx, conn, username, args[1])
			if err == nil && ok {
				if werr := os.WriteFile(args[2], data, 0o644); werr != nil {
					fmt.Printf("download succeeded but failed to write %s: %v\n", args[2], werr)
					cancel()
					continue
				}
			}
			printResult("Download", ok, msg, err)

		case "delete":
			if len(args) < 2 || username == "" {
				fmt.Println("Usage: delete <sys_path> (must be logged in)")
				cancel()
				continue
			}
			ok, msg, err := client.DeleteFile(ctx, conn, username, args[1])
			printResult("Delete", ok, msg, err)

		case "list":
			if username == "" {
				fmt.Println("Must be logged in")
				cancel()
				continue
			}
			files, ok, msg, err := client.ListFiles(ctx, conn, username)
			if err != nil || !ok {
				printResult("ListFiles", ok, msg, err)
				cancel()
				continue
			}
			fmt.Printf("Files (count=%d):\n", len(files))
			for _, f := range files {
				fmt.Printf("  - %s\n", f)
			}

		case "servers":
			servers, err := client.AvailableServers(ctx, conn)
			if err != nil {
				fmt.Printf("AvailableServers failed: %v\n", err)
				cancel()
				continue
			}
			fmt.Println("Available servers:")
			for _, s := range servers {
				fmt.Printf("  - %s\n", s)
			}

		case "ping":
			ok, msg, err := client.Ping(ctx, conn)
			printResult("Ping", ok, msg, err)

		case "use":
			if len(args) < 2 {
				fmt.Println("Usage: use <addr>")
				cancel()
				continue
			}
			newAddr := args[1]
			newConn, err := connect(newAddr)
			if err != nil {
				fmt.Printf("Failed to connect to %s: %v\n", newAddr, err)
				cancel()
				continue
			}
			conn.Close()
			conn = newConn
			currentAddr = newAddr
			fmt.Printf("Switched connection to %s\n", currentAddr)

		case "exit", "quit":
			fmt.Println("Bye!")
			cancel()
			return

		default:
			fmt.Printf("Unknown command: %s\n", cmd)
		}

		cancel()
	}
}

func printResult(op string, ok bool, msg string, err error) {
	if err != nil {
		fmt.Printf("%s failed: %v\n", op, err)
		return
	}
	if ok {
		fmt.Printf("%s succeeded: %s\n", op, msg)
	} else {
		fmt.Printf("%s rejected: %s\n", op, msg)
	}
}
