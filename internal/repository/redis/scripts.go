package redis

import goredis "github.com/redis/go-redis/v9"

// extendLua sets key to value with a PX lifetime unless the key already
// lives at least that long.
const extendLua = `
local function extend(key, value, px)
  local cur = redis.call('PTTL', key)
  if cur == -1 then
    return
  end
  if cur < tonumber(px) then
    redis.call('SET', key, value, 'PX', px)
  end
end
`

// KEYS: session, subject index
// ARGV: sealed, ttl ms, digest, policy, session prefix, blacklist prefix,
// subject id, blacklist ttl ms
var putScript = goredis.NewScript(extendLua + `
if ARGV[4] == 'multi' then
  local cur = redis.call('PTTL', KEYS[2])
  redis.call('SADD', KEYS[2], ARGV[3])
  if cur < tonumber(ARGV[2]) then
    redis.call('PEXPIRE', KEYS[2], ARGV[2])
  end
else
  local prev = redis.call('GET', KEYS[2])
  if prev and prev ~= ARGV[3] then
    redis.call('DEL', ARGV[5] .. prev)
    extend(ARGV[6] .. prev, ARGV[7], ARGV[8])
  end
  redis.call('SET', KEYS[2], ARGV[3], 'PX', ARGV[2])
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

// KEYS: old session, new session, old blacklist, subject index
// ARGV: expected, sealed, ttl ms, blacklist ttl ms, subject id, old digest,
// new digest, policy
var rotateScript = goredis.NewScript(extendLua + `
local cur = redis.call('GET', KEYS[1])
if not cur or cur ~= ARGV[1] then
  return 0
end
redis.call('DEL', KEYS[1])
extend(KEYS[3], ARGV[5], ARGV[4])
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
if ARGV[8] == 'multi' then
  redis.call('SREM', KEYS[4], ARGV[6])
  redis.call('SADD', KEYS[4], ARGV[7])
  redis.call('PEXPIRE', KEYS[4], ARGV[3])
else
  redis.call('SET', KEYS[4], ARGV[7], 'PX', ARGV[3])
end
return 1
`)

// KEYS: session, blacklist
// ARGV: blacklist ttl ms, marker
var revokeScript = goredis.NewScript(extendLua + `
redis.call('DEL', KEYS[1])
extend(KEYS[2], ARGV[2], ARGV[1])
return 1
`)

// KEYS: subject index
// ARGV: blacklist ttl ms, subject id, policy, session prefix, blacklist prefix
var revokeSubjectScript = goredis.NewScript(extendLua + `
local digests = {}
if ARGV[3] == 'multi' then
  digests = redis.call('SMEMBERS', KEYS[1])
else
  local d = redis.call('GET', KEYS[1])
  if d then
    digests = {d}
  end
end
for _, d in ipairs(digests) do
  redis.call('DEL', ARGV[4] .. d)
  extend(ARGV[5] .. d, ARGV[2], ARGV[1])
end
redis.call('DEL', KEYS[1])
return #digests
`)

// KEYS: blacklist
// ARGV: ttl ms, marker
var blacklistScript = goredis.NewScript(extendLua + `
extend(KEYS[1], ARGV[2], ARGV[1])
return 1
`)

// Sliding log limiter. Scores are unix milliseconds passed in as strings.
// KEYS: limiter
// ARGV: now ms, cutoff ms, max attempts, member, window ms
var rateLimitScript = goredis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
local n = redis.call('ZCARD', KEYS[1])
if n >= tonumber(ARGV[3]) then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)
