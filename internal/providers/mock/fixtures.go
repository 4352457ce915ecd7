// ABOUTME: Canned package-manager output used by the mock runner.
// ABOUTME: Mirrors the real JSON shapes, including leading warnings and NDJSON streams.

package mock

const npmOutdated = `npm WARN config production Use ` + "`--omit=dev`" + ` instead.
{
  "lodash": {"current": "4.17.20", "wanted": "4.17.21", "latest": "4.17.21", "dependent": "app", "location": "node_modules/lodash"},
  "react": {"current": "17.0.2", "wanted": "17.0.2", "latest": "18.3.1", "dependent": "app", "location": "node_modules/react"},
  "typescript": {"current": "5.3.3", "wanted": "5.3.3", "latest": "5.6.2", "type": "devDependencies", "dependent": "app", "location": "node_modules/typescript"},
  "axios": {"current": "0.27.2", "wanted": "0.27.2", "latest": "1.7.7", "dependent": "app", "location": "node_modules/axios"}
}`

const npmAudit = `{
  "auditReportVersion": 2,
  "vulnerabilities": {
    "axios": {
      "name": "axios",
      "severity": "high",
      "isDirect": true,
      "via": [
        {"source": 1097679, "name": "axios", "dependency": "axios", "title": "Axios Cross-Site Request Forgery Vulnerability", "url": "https://github.com/advisories/GHSA-wf5p-g6vw-rhxx", "severity": "moderate", "range": ">=0.8.1 <0.28.0"},
        {"source": 1103617, "name": "axios", "dependency": "axios", "title": "axios Requests Vulnerable To Possible SSRF and Credential Leakage via Absolute URL (CVE-2025-27152)", "url": "https://github.com/advisories/GHSA-jr5f-v2jv-69x6", "severity": "high", "range": "<0.30.0"}
      ],
      "effects": [],
      "range": "<=0.29.0",
      "nodes": ["node_modules/axios"],
      "fixAvailable": {"name": "axios", "version": "1.8.2", "isSemVerMajor": true}
    },
    "semver": {
      "name": "semver",
      "severity": "moderate",
      "isDirect": false,
      "via": [{"source": 1101088, "name": "semver", "dependency": "semver", "title": "semver vulnerable to Regular Expression Denial of Service", "url": "https://github.com/advisories/GHSA-c2qf-rxjj-qqgw", "severity": "moderate", "range": "<5.7.2"}],
      "effects": ["make-dir"],
      "range": "<5.7.2",
      "nodes": ["node_modules/make-dir/node_modules/semver"],
      "fixAvailable": true
    },
    "make-dir": {
      "name": "make-dir",
      "severity": "moderate",
      "isDirect": true,
      "via": ["semver"],
      "effects": [],
      "range": "2.0.0 - 3.1.0",
      "nodes": ["node_modules/make-dir"],
      "fixAvailable": true
    }
  },
  "metadata": {"vulnerabilities": {"info": 0, "low": 0, "moderate": 2, "high": 1, "critical": 0, "total": 3}}
}`

const pnpmOutdated = ` WARN  1 deprecated subdependencies found: glob@7.2.3
[
  {"packageName": "lodash", "current": "4.17.20", "wanted": "4.17.21", "latest": "4.17.21", "dependencyType": "dependencies", "isDeprecated": false},
  {"packageName": "vite", "current": "4.5.0", "wanted": "4.5.5", "latest": "5.4.8", "dependencyType": "devDependencies", "isDeprecated": false}
]`

const pnpmAudit = `{
  "actions": [],
  "advisories": {
    "1096366": {
      "id": 1096366,
      "module_name": "vite",
      "severity": "moderate",
      "title": "Vite's server.fs.deny is bypassed when using ?import&raw",
      "url": "https://github.com/advisories/GHSA-9cwx-2883-4wfx",
      "cves": ["CVE-2024-45811"],
      "vulnerable_versions": "<4.5.4",
      "patched_versions": ">=4.5.4",
      "findings": [{"version": "4.5.0", "paths": [".>vite"]}]
    },
    "1098592": {
      "id": 1098592,
      "module_name": "rollup",
      "severity": "high",
      "title": "DOM Clobbering Gadget found in rollup bundled scripts that leads to XSS",
      "url": "https://github.com/advisories/GHSA-gcx4-mw62-g8wm",
      "cves": ["CVE-2024-47068"],
      "vulnerable_versions": "<3.29.5",
      "patched_versions": ">=3.29.5",
      "findings": [{"version": "3.29.4", "paths": [".>vite>rollup"]}]
    }
  },
  "metadata": {"vulnerabilities": {"moderate": 1, "high": 1}}
}`

const yarnOutdated = `{"type":"info","data":"Color legend : \n \"<red>\"    : Major Update backward-incompatible updates \n"}
{"type":"table","data":{"head":["Package","Current","Wanted","Latest","Package Type","URL"],"body":[["chalk","4.1.0","4.1.2","5.3.0","dependencies","https://github.com/chalk/chalk#readme"],["jest","29.0.0","29.7.0","29.7.0","devDependencies","https://jestjs.io/"]]}}
`

const yarnAudit = `{"type":"auditAdvisory","data":{"resolution":{"id":1523,"path":"lodash","dev":false,"optional":false,"bundled":false},"advisory":{"id":1523,"module_name":"lodash","severity":"high","title":"Prototype Pollution in lodash","url":"https://github.com/advisories/GHSA-p6mc-m468-83gw","cves":["CVE-2020-8203"],"vulnerable_versions":"<4.17.19","patched_versions":">=4.17.19","findings":[{"version":"4.17.15","paths":["lodash"]}]}}}
{"type":"auditSummary","data":{"vulnerabilities":{"info":0,"low":0,"moderate":0,"high":1,"critical":0},"dependencies":412}}
`
