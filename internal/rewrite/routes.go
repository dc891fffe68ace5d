package rewrite

import "regexp"

// RoutesHeader declares the route collection variable the way CI4 route files do.
const RoutesHeader = `
use CodeIgniter\Router\RouteCollection;

/**
 * @var RouteCollection $routes
 */
`

var (
	routeLine       = regexp.MustCompile(`(?m)^([ \t]*)\$route\[\s*('[^']*'|"[^"]*")\s*\]\s*=\s*('[^']*'|"[^"]*")\s*;`)
	translateDashes = regexp.MustCompile(`(?mi)^([ \t]*)\$route\[\s*['"]translate_uri_dashes['"]\s*\]\s*=\s*(true|false)\s*;`)
)

// RewriteRoutes turns `$route['pattern'] = 'target';` into
// `$routes->add('pattern', 'target');`, keeping both literals as written.
func RewriteRoutes(src string) (string, bool) {
	if !routeLine.MatchString(src) {
		return src, false
	}
	return routeLine.ReplaceAllString(src, `${1}$$routes->add(${2}, ${3});`), true
}

func RoutesRule() Rule {
	return Rule{Name: "routes", Apply: RewriteRoutes}.
		Expected(SeverityInfo, "no $route assignments found")
}

func TranslateDashesRule() Rule {
	return Regex("routes-translate-dashes", translateDashes.String(), `${1}$$routes->setTranslateURIDashes(${2});`)
}

func RoutesHeaderRule() Rule {
	return Rule{
		Name:  "routes-header",
		Apply: func(src string) (string, bool) { return InjectAfterOpenTag(src, RoutesHeader) },
	}
}
