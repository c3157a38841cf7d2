package nspire

// USB identifiers of TI-Nspire handhelds.
const (
	VID    uint16 = 0x0451 // Texas Instruments
	PID    uint16 = 0xe012 // TI-Nspire (all models before CX II)
	PIDCX2 uint16 = 0xe022 // TI-Nspire CX II
)

// Products lists every product identifier served by this package.
var Products = []uint16{PID, PIDCX2}

// Operation names used in errors, logs and metrics.
const (
	opOpen       = "open"
	opInfo       = "info"
	opScreenshot = "screenshot"
	opListDir    = "list_dir"
	opCreateDir  = "create_dir"
	opDeleteDir  = "delete_dir"
	opFileAttr   = "file_attr"
	opCopyFile   = "copy_file"
	opMoveFile   = "move_file"
	opDeleteFile = "delete_file"
	opReadFile   = "read_file"
	opWriteFile  = "write_file"
	opSendOS     = "send_os"
	opClose      = "close"
)
