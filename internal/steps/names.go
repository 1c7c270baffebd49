package steps

// Step and composite names. They are the invocation surface of the CLI and
// the watch table.
const (
	App        = "app"
	CSS        = "css"
	CSSSvg     = "css:svg"
	CSSSprites = "css:sprites"
	CSSVendor  = "css:vendor"
	CSSStylus  = "css:stylus"
	CSSPrepare = "css:prepare"
	CSSSvgUpd  = "css:svg:update"
	CSSSprUpd  = "css:sprites:update"
	JS         = "js"
	JSMain     = "js:main"
	JSVendor   = "js:vendor"
	Fonts      = "fonts"
	Images     = "images"
	Video      = "video"
	HTML       = "html"

	Build         = "build"
	ExternalBuild = "external:build"
	Watch         = "watch"
	ExpressStart  = "express:start"
	Default       = "default"
	External      = "external"
	Express       = "express"
)
