package domain

// Account describes a user account and the files it owns. The clients ring
// does not store this type: internal/dispatch stores its own JSON account
// record (password hash plus a list of file paths) under the username.
type Account struct {
	Username     string
	PasswordHash string
	Files        map[string]FileMeta // filename -> location on the data ring
}

// FileMeta locates a file's content on the data ring.
type FileMeta struct {
	Key         ID
	Size        int64
	UpdatedUnix int64
}
