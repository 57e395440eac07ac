package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

// Entry ids are read from 'passlock ls' with stdin closed, so a locked
// vault fails fast instead of prompting.
const bashCompletion = `_passlock() {
    local cur prev words cword
    _init_completion || return

    local commands="init add ls get edit rm clear passwd gen strength export import diff status settings lock keyring shell compact completion help"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands --config" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$prev" in
        --classes)
            COMPREPLY=($(compgen -W "all lower upper digit symbol lower,upper,digit" -- "$cur"))
            return
            ;;
        --mode)
            COMPREPLY=($(compgen -W "merge replace" -- "$cur"))
            return
            ;;
        --strategy)
            COMPREPLY=($(compgen -W "ask keep-local use-import keep-both abort" -- "$cur"))
            return
            ;;
        --require-password)
            COMPREPLY=($(compgen -W "true false" -- "$cur"))
            return
            ;;
    esac

    case "$cmd" in
        add)
            COMPREPLY=($(compgen -W "--website --username --category --notes --generate --classes" -- "$cur"))
            ;;
        ls)
            COMPREPLY=($(compgen -W "--category --show" -- "$cur"))
            ;;
        get|edit|rm)
            if [[ "$cur" == -* ]]; then
                case "$cmd" in
                    get)  COMPREPLY=($(compgen -W "--copy --show" -- "$cur")) ;;
                    edit) COMPREPLY=($(compgen -W "--website --username --category --notes --password --generate --classes" -- "$cur")) ;;
                    rm)   COMPREPLY=($(compgen -W "--force" -- "$cur")) ;;
                esac
            else
                local ids
                ids=$(passlock ls </dev/null 2>/dev/null | awk 'NR>1 {print $1}')
                COMPREPLY=($(compgen -W "$ids" -- "$cur"))
            fi
            ;;
        clear)
            COMPREPLY=($(compgen -W "--force" -- "$cur"))
            ;;
        gen)
            COMPREPLY=($(compgen -W "-n --classes --copy" -- "$cur"))
            ;;
        export)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-o --out --force" -- "$cur"))
            else
                _filedir json
            fi
            ;;
        import|diff)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--mode --strategy --reveal --force" -- "$cur"))
            else
                _filedir json
            fi
            ;;
        settings)
            COMPREPLY=($(compgen -W "--auto-lock --require-password" -- "$cur"))
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _passlock passlock
`

const zshCompletion = `#compdef passlock

_passlock() {
    local -a commands
    commands=(
        'init:Create a new vault'
        'add:Add an entry'
        'ls:List or search entries'
        'get:Show an entry'
        'edit:Change an entry'
        'rm:Remove entries'
        'clear:Delete all entries'
        'passwd:Change the master password'
        'gen:Generate a password'
        'strength:Score a password'
        'export:Export entries to JSON'
        'import:Import entries from JSON'
        'diff:Compare the vault with an export file'
        'status:Show vault and session state'
        'settings:Show or change auto-lock settings'
        'lock:Lock the session'
        'keyring:Manage password in OS keyring'
        'shell:Start an interactive session'
        'compact:Compact the vault file'
        'completion:Generate shell completions'
        'help:Show help for a command'
    )

    _arguments -C \
        '--config[Config file]:file:_files' \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'passlock commands' commands
            ;;
        args)
            case "${words[2]}" in
                add|edit)
                    _arguments \
                        '--website[Website or service]:website:' \
                        '--username[Username or email]:username:' \
                        '--category[Category]:category:' \
                        '--notes[Notes]:notes:' \
                        '--password[Prompt for a new password]' \
                        '--generate[Generate a password of this length]:length:' \
                        '--classes[Character classes]:classes:(all lower upper digit symbol)' \
                        '*:entry id:_passlock_ids'
                    ;;
                ls)
                    _arguments '--category[Only this category]:category:' '--show[Show passwords]'
                    ;;
                get)
                    _arguments '--copy[Copy password to clipboard]' '--show[Show password]' '*:entry id:_passlock_ids'
                    ;;
                rm)
                    _arguments '--force[Do not ask]' '*:entry id:_passlock_ids'
                    ;;
                clear)
                    _arguments '--force[Do not ask]'
                    ;;
                gen)
                    _arguments '-n[Length]:length:' '--classes[Character classes]:classes:(all lower upper digit symbol)' '--copy[Copy to clipboard]'
                    ;;
                export)
                    _arguments '-o[Output file]:file:_files' '--out[Output file]:file:_files' '--force[Overwrite]'
                    ;;
                import|diff)
                    _arguments \
                        '--mode[Import mode]:mode:(merge replace)' \
                        '--strategy[Conflict strategy]:strategy:(ask keep-local use-import keep-both abort)' \
                        '--reveal[Show passwords in diffs]' \
                        '--force[Do not ask]' \
                        '*:file:_files -g "*.json"'
                    ;;
                settings)
                    _arguments '--auto-lock[Minutes]:minutes:' '--require-password[Require master password]:bool:(true false)'
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'passlock commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_passlock_ids() {
    local -a ids
    ids=(${(f)"$(passlock ls </dev/null 2>/dev/null | awk 'NR>1 {print $1}')"})
    _describe -t ids 'entry ids' ids
}

_passlock "$@"
`

const fishCompletion = `# passlock fish completions

set -l commands init add ls get edit rm clear passwd gen strength export import diff status settings lock keyring shell compact completion help

complete -c passlock -f

# Commands
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a new vault'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a add -d 'Add an entry'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List or search entries'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a get -d 'Show an entry'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a edit -d 'Change an entry'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove entries'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a clear -d 'Delete all entries'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change the master password'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a gen -d 'Generate a password'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a strength -d 'Score a password'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a export -d 'Export entries'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a import -d 'Import entries'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare with an export'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show vault state'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a settings -d 'Auto-lock settings'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a lock -d 'Lock the session'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage password in OS keyring'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a shell -d 'Interactive session'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact vault'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'
complete -c passlock -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'

# entry flags
complete -c passlock -n "__fish_seen_subcommand_from add edit" -l website -r -d 'Website or service'
complete -c passlock -n "__fish_seen_subcommand_from add edit" -l username -r -d 'Username or email'
complete -c passlock -n "__fish_seen_subcommand_from add edit" -l category -r -d 'Category'
complete -c passlock -n "__fish_seen_subcommand_from add edit" -l notes -r -d 'Notes'
complete -c passlock -n "__fish_seen_subcommand_from add edit" -l generate -r -d 'Generate a password'
complete -c passlock -n "__fish_seen_subcommand_from add edit gen" -l classes -r -a "all lower upper digit symbol" -d 'Character classes'
complete -c passlock -n "__fish_seen_subcommand_from edit" -l password -d 'Prompt for a new password'
complete -c passlock -n "__fish_seen_subcommand_from get edit rm" -a "(passlock ls </dev/null 2>/dev/null | awk 'NR>1 {print \$1}')"

complete -c passlock -n "__fish_seen_subcommand_from ls" -l category -r -d 'Only this category'
complete -c passlock -n "__fish_seen_subcommand_from ls get" -l show -d 'Show passwords'
complete -c passlock -n "__fish_seen_subcommand_from get gen" -l copy -d 'Copy to clipboard'
complete -c passlock -n "__fish_seen_subcommand_from rm clear export import" -l force -d 'Do not ask'
complete -c passlock -n "__fish_seen_subcommand_from gen" -s n -r -d 'Length'

# transfer
complete -c passlock -n "__fish_seen_subcommand_from export" -s o -l out -r -F -d 'Output file'
complete -c passlock -n "__fish_seen_subcommand_from import diff" -F
complete -c passlock -n "__fish_seen_subcommand_from import" -l mode -r -a "merge replace"
complete -c passlock -n "__fish_seen_subcommand_from import" -l strategy -r -a "ask keep-local use-import keep-both abort"
complete -c passlock -n "__fish_seen_subcommand_from import diff" -l reveal -d 'Show passwords in diffs'

# settings
complete -c passlock -n "__fish_seen_subcommand_from settings" -l auto-lock -r -d 'Minutes'
complete -c passlock -n "__fish_seen_subcommand_from settings" -l require-password -r -a "true false"

# keyring subcommands
complete -c passlock -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c passlock -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c passlock -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
