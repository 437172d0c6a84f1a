package content

// builtinTypes maps lowercase file extensions to media types.
var builtinTypes = map[string]string{
	// Text
	".txt":   plainType,
	".text":  plainType,
	".log":   plainType,
	".md":    "text/markdown; charset=utf-8",
	".rst":   plainType,
	".csv":   "text/csv; charset=utf-8",
	".tsv":   "text/tab-separated-values; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".ics":   "text/calendar; charset=utf-8",
	".js":    "text/javascript; charset=utf-8",
	".mjs":   "text/javascript; charset=utf-8",
	".json":  "application/json",
	".xml":   "application/xml",
	".xhtml": "application/xhtml+xml",
	".svg":   "image/svg+xml",
	".yaml":  "application/yaml",
	".yml":   "application/yaml",
	".toml":  "application/toml",
	".ini":   plainType,
	".conf":  plainType,
	".cfg":   plainType,
	".sh":    "application/x-sh",
	".go":    plainType,
	".py":    plainType,
	".rb":    plainType,
	".rs":    plainType,
	".c":     plainType,
	".h":     plainType,
	".cpp":   plainType,
	".java":  plainType,
	".sql":   plainType,
	".diff":  plainType,
	".patch": plainType,

	// Images
	".apng": "image/apng",
	".avif": "image/avif",
	".bmp":  "image/bmp",
	".gif":  "image/gif",
	".ico":  "image/vnd.microsoft.icon",
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".webp": "image/webp",

	// Audio and video
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".mid":  "audio/midi",
	".midi": "audio/midi",
	".mp3":  "audio/mpeg",
	".oga":  "audio/ogg",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".wav":  "audio/wav",
	".weba": "audio/webm",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp4":  "video/mp4",
	".mpeg": "video/mpeg",
	".ogv":  "video/ogg",
	".webm": "video/webm",

	// Fonts
	".otf":   "font/otf",
	".ttf":   "font/ttf",
	".woff":  "font/woff",
	".woff2": "font/woff2",

	// Documents
	".pdf":  "application/pdf",
	".epub": "application/epub+zip",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".odt":  "application/vnd.oasis.opendocument.text",
	".ods":  "application/vnd.oasis.opendocument.spreadsheet",
	".odp":  "application/vnd.oasis.opendocument.presentation",
	".rtf":  "application/rtf",

	// Archives and binaries
	".7z":    "application/x-7z-compressed",
	".bz2":   "application/x-bzip2",
	".gz":    "application/gzip",
	".tgz":   "application/gzip",
	".jar":   "application/java-archive",
	".rar":   "application/vnd.rar",
	".tar":   "application/x-tar",
	".xz":    "application/x-xz",
	".zip":   "application/zip",
	".zst":   "application/zstd",
	".bin":   OctetStream,
	".exe":   OctetStream,
	".iso":   OctetStream,
	".wasm":  "application/wasm",
	".deb":   "application/vnd.debian.binary-package",
	".rpm":   "application/x-rpm",
	".dmg":   OctetStream,
	".so":    OctetStream,
	".dll":   OctetStream,
	".class": "application/java-vm",
}
