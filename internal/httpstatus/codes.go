// Package httpstatus translates HTTP status codes to plain text, including
// the common unofficial codes used by proxies and CDNs.
package httpstatus

import "fmt"

var meanings = map[int]string{
	// informational
	100: "Continue",
	101: "Switching Protocols",
	102: "Processing (WebDAV, deprecated)",
	103: "Early Hints",

	// successful
	200: "OK",
	201: "Created",
	202: "Accepted",
	203: "Non-Authoritative Information",
	204: "No Content",
	205: "Reset Content",
	206: "Partial Content",
	207: "Multi-Status (WebDAV)",
	208: "Already Reported (WebDAV)",

	// redirection
	300: "Multiple Choices",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	305: "Use Proxy",
	306: "Switch Proxy (no longer used)",
	307: "Temporary Redirect",
	308: "Permanent Redirect",

	// client error
	400: "Bad Request",
	401: "Unauthorized",
	402: "Payment Required",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	407: "Proxy Authentication Required",
	408: "Request Timeout",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Precondition Failed",
	413: "Request Too Large",
	414: "Request-URI Too Long",
	415: "Unsupported Media Type",
	416: "Range Not Satisfiable",
	417: "Expectation Failed",
	418: "I'm a teapot (IETF April Fools' joke)",
	421: "Misdirected Request",
	422: "Unprocessable Content",
	423: "Locked (WebDAV)",
	424: "Failed Dependency (WebDAV)",
	425: "Too Early",
	426: "Upgrade Required",
	428: "Precondition Required",
	429: "Too Many Requests",
	431: "Request Header Fields Too Large",
	451: "Unavailable For Legal Reasons",

	// server error
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
	506: "Variant Also Negotiates",
	507: "Insufficient Storage (WebDAV)",
	508: "Loop Detected (WebDAV)",
	510: "Not Extended",
	511: "Network Authentication Required",

	// unofficial
	218: "This is fine (Apache HTTP Server, unofficial)",
	419: "Page Expired (Laravel Framework, unofficial)",
	420: "Method Failure (Spring Framework, unofficial)",
	509: "Bandwidth Limit Exceeded (Apache Web Server/cPanel, unofficial)",
	529: "Site is Overloaded (Qualys, unofficial)",
	530: "Site is Frozen (Pantheon Systems, unofficial), or, See accompanying 1xxx error (Cloudflare, unofficial)",
	598: "Network Read Timeout Error (unofficial)",
	599: "Network Connect Timeout Error (unofficial)",
	440: "Login Time-out (IIS, unofficial)",
	449: "Retry With (IIS, unofficial)",
	444: "No Response (nginx, unofficial)",
	494: "Request header too large (nginx, unofficial)",
	495: "SSL Certificate Error (nginx, unofficial)",
	496: "SSL Certificate Required (nginx, unofficial)",
	497: "HTTP Request Sent to HTTPS Port (nginx, unofficial)",
	499: "Client Closed Request (nginx, unofficial)",
	520: "Web Server Returned an Unknown Error (Cloudflare, unofficial)",
	521: "Web Server Is Down (Cloudflare, unofficial)",
	522: "Connection Timed Out (Cloudflare, unofficial)",
	523: "Origin Is Unreachable (Cloudflare, unofficial)",
	524: "A Timeout Occurred (Cloudflare, unofficial)",
	525: "SSL Handshake Failed (Cloudflare, unofficial)",
	526: "Invalid SSL Certificate (Cloudflare, unofficial)",
	527: "Railgun Error (Cloudflare, unofficial)",
}

// Meaning formats code as "<code> (<meaning>)." or "<code>." when unknown.
func Meaning(code int) string {
	if m, ok := meanings[code]; ok {
		return fmt.Sprintf("%d (%s).", code, m)
	}
	return fmt.Sprintf("%d.", code)
}
