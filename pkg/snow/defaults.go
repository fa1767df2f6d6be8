package snow

// defaultSecurityPatterns is the embedded screening table, overridable via
// LoadSecurityConfig with a custom YAML file.
const defaultSecurityPatterns = `
maxScriptLength: 100000

blacklist:
  - pattern: '\beval\s*\('
    message: "Dynamic code evaluation is not allowed"
    detail: "eval()"
  - pattern: 'new\s+Function\s*\('
    message: "Dynamic function construction is not allowed"
    detail: "new Function()"
  - pattern: 'GlideScopedEvaluator'
    message: "Scripted evaluators are not allowed"
    detail: "GlideScopedEvaluator"
  - pattern: 'gs\.executeNow\s*\('
    message: "Immediate job execution is not allowed"
    detail: "gs.executeNow()"
  - pattern: '\bimportPackage\s*\('
    message: "Package imports are not allowed"
    detail: "importPackage()"
  - pattern: '\bPackages\s*\.'
    message: "Raw Java package access is not allowed"
    detail: "Packages.*"
  - pattern: 'java\.io\.'
    message: "Direct file system access is not allowed"
    detail: "java.io"
  - pattern: 'java\.net\.'
    message: "Direct network access is not allowed"
    detail: "java.net"
  - pattern: 'new\s+GlideRecord\s*\('
    message: "Legacy record iteration is not allowed in executed scripts, use GlideQuery"
    detail: "new GlideRecord()"

dangerousOperations:
  - pattern: '\.deleteMultiple\s*\('
    message: "Bulk delete"
    detail: "deleteMultiple()"
  - pattern: '\.updateMultiple\s*\('
    message: "Bulk update"
    detail: "updateMultiple()"
  - pattern: '\.setWorkflow\s*\(\s*false'
    message: "Workflow disable"
    detail: "setWorkflow(false)"
  - pattern: '\.autoSysFields\s*\(\s*false'
    message: "Audit field disable"
    detail: "autoSysFields(false)"
  - pattern: '\.setForceUpdate\s*\(\s*true'
    message: "Forced update"
    detail: "setForceUpdate(true)"

includeBlacklist:
  - pattern: '\beval\s*\('
    message: "Dynamic code evaluation is not allowed in script includes"
  - pattern: 'new\s+Function\s*\('
    message: "Dynamic function construction is not allowed in script includes"
  - pattern: 'GlideScopedEvaluator'
    message: "Scripted evaluators are not allowed in script includes"
  - pattern: 'gs\.executeNow\s*\('
    message: "Immediate job execution is not allowed in script includes"
  - pattern: '\bimportPackage\s*\('
    message: "Package imports are not allowed in script includes"
  - pattern: '\bPackages\s*\.'
    message: "Raw Java package access is not allowed in script includes"
  - pattern: 'java\.io\.'
    message: "Direct file system access is not allowed in script includes"
  - pattern: 'java\.net\.'
    message: "Direct network access is not allowed in script includes"

includeDiscouraged:
  - pattern: 'new\s+GlideRecord\s*\('
    message: "Prefer GlideQuery over GlideRecord in script includes"
  - pattern: 'gs\.print\s*\('
    message: "Prefer gs.info over gs.print"
  - pattern: 'gs\.log\s*\('
    message: "Prefer gs.info over gs.log"
`
